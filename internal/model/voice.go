package model

import "time"

// VoiceModel は音声合成に使用できるボイスモデルのカタログエントリを表す。
type VoiceModel struct {
	ID            string
	Title         string
	CoverImageURL string
	CreatedAt     time.Time
}

// DefaultVoiceModelID はモデル未選択時に合成エンドポイントへ送る値。
const DefaultVoiceModelID = "default"
