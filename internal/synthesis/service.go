package synthesis

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/voxly/internal/metrics"
	"github.com/hitoshi/voxly/internal/model"
)

// MaxChars は1回の合成で送信する最大文字数。
const MaxChars = 3000

// 画面に表示する固定メッセージ
const (
	MsgSuccess = "Speech generated successfully!"
	MsgFailure = "Failed to connect to the backend. Please try again."
)

// Outcome は合成リクエストの結果。
type Outcome int

const (
	// Skipped は空白のみの入力で、何も送信しなかったことを表す。
	Skipped Outcome = iota
	Succeeded
	Failed
)

// ServiceConfig はServiceの設定。
type ServiceConfig struct {
	HistoryMax int // 0は上限なし
}

// Service は合成ワークフローを提供する。
type Service struct {
	generator Generator
	registry  *Registry
	config    ServiceConfig
	metrics   metrics.MetricsCollector
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(generator Generator, registry *Registry, config ServiceConfig, mc metrics.MetricsCollector) *Service {
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	return &Service{
		generator: generator,
		registry:  registry,
		config:    config,
		metrics:   mc,
		now:       time.Now,
	}
}

// Workspace は指定IDのワークスペースを返す。存在しない場合は作成する。
func (s *Service) Workspace(id string) *Workspace {
	return s.registry.Get(id)
}

// Clip は指定ワークスペースの音声を返す。ワークスペースを新規作成しない。
func (s *Service) Clip(workspaceID string, clipID int64) (model.AudioClip, bool) {
	ws, ok := s.registry.Lookup(workspaceID)
	if !ok {
		return model.AudioClip{}, false
	}
	return ws.Clip(clipID)
}

// Release はワークスペースを破棄する。
func (s *Service) Release(workspaceID string) {
	s.registry.Release(workspaceID)
}

// TruncateText はテキストを先頭からMaxChars文字に切り詰める。
func TruncateText(text string) string {
	if len(text) <= MaxChars {
		return text
	}
	runes := []rune(text)
	if len(runes) <= MaxChars {
		return text
	}
	return string(runes[:MaxChars])
}

// Synthesize はテキストを音声に変換し、ワークスペースの履歴の先頭に追加する。
// 空白のみのテキストは送信せず、通知も変更しない。
// 失敗時は履歴を変更せず、失敗メッセージを通知に設定する。
func (s *Service) Synthesize(ctx context.Context, ws *Workspace, text string) Outcome {
	text = TruncateText(text)
	ws.setDraft(text)

	if strings.TrimSpace(text) == "" {
		s.metrics.RecordSynthesis(metrics.ResultSkipped, 0)
		return Skipped
	}

	ws.setNotice(Notice{})
	modelID := ws.ModelID()

	start := s.now()
	audio, err := s.generator.Generate(ctx, text, modelID)
	elapsed := s.now().Sub(start)

	if err != nil {
		s.metrics.RecordSynthesis(metrics.ResultFailure, elapsed)
		attrs := []any{
			slog.String("model", modelID),
			slog.Int("chars", len([]rune(text))),
			slog.String("error", err.Error()),
		}
		var se *StatusError
		if errors.As(err, &se) {
			attrs = append(attrs, slog.Int("status_code", se.StatusCode))
		}
		slog.Warn("speech synthesis failed", attrs...)
		ws.setNotice(Notice{Kind: NoticeError, Text: MsgFailure})
		return Failed
	}

	created := s.now()
	clip := ws.prepend(model.AudioClip{
		ID:          created.UnixMilli(),
		Data:        audio.Data,
		ContentType: audio.ContentType,
		Text:        text,
		Model:       modelID,
		CreatedAt:   created,
	}, s.config.HistoryMax)

	s.metrics.RecordSynthesis(metrics.ResultSuccess, elapsed)
	slog.Info("speech synthesized",
		slog.String("model", modelID),
		slog.Int64("clip_id", clip.ID),
		slog.Int("bytes", len(audio.Data)),
		slog.Duration("latency", elapsed),
	)
	ws.setNotice(Notice{Kind: NoticeSuccess, Text: MsgSuccess})
	return Succeeded
}
