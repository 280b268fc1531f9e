package model

import "time"

// AudioClip は音声合成で生成された音声データを表す。
// ブラウザごとのワークスペースにのみ保持され、永続化されない。
type AudioClip struct {
	ID          int64 // 生成時刻（Unixミリ秒）
	Data        []byte
	ContentType string
	Text        string
	Model       string
	CreatedAt   time.Time
}
