package synthesis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/voxly/internal/model"
)

// --- モック定義 ---

type mockGenerator struct {
	generateFn func(ctx context.Context, text, model string) (*Audio, error)
	calls      int
	lastText   string
	lastModel  string
}

func (m *mockGenerator) Generate(ctx context.Context, text, model string) (*Audio, error) {
	m.calls++
	m.lastText = text
	m.lastModel = model
	if m.generateFn != nil {
		return m.generateFn(ctx, text, model)
	}
	return &Audio{Data: []byte("mp3"), ContentType: "audio/mpeg"}, nil
}

var _ Generator = (*mockGenerator)(nil)

func newTestService(t *testing.T, gen Generator, historyMax int) *Service {
	t.Helper()
	svc := NewService(gen, newTestRegistry(t, time.Hour), ServiceConfig{HistoryMax: historyMax}, nil)
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	return svc
}

// --- テスト ---

func TestTruncateText(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantRunes int
	}{
		{"short", "hello", 5},
		{"exact", strings.Repeat("a", MaxChars), MaxChars},
		{"ascii over", strings.Repeat("a", MaxChars+1), MaxChars},
		{"multibyte over", strings.Repeat("音", MaxChars+10), MaxChars},
		{"multibyte under bytes over", strings.Repeat("音", 1500), 1500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateText(tt.input)
			if n := utf8.RuneCountInString(got); n != tt.wantRunes {
				t.Errorf("rune count = %d, want %d", n, tt.wantRunes)
			}
			if !strings.HasPrefix(tt.input, got) {
				t.Error("result must be a prefix of the input")
			}
		})
	}
}

func TestSynthesize_TruncatesBeforeSending(t *testing.T) {
	gen := &mockGenerator{}
	svc := newTestService(t, gen, 0)
	ws := svc.Workspace("ws")

	svc.Synthesize(context.Background(), ws, strings.Repeat("x", 3500))

	if n := utf8.RuneCountInString(gen.lastText); n != MaxChars {
		t.Errorf("sent %d characters, want %d", n, MaxChars)
	}
}

func TestSynthesize_WhitespaceIsNoOp(t *testing.T) {
	gen := &mockGenerator{}
	svc := newTestService(t, gen, 0)
	ws := svc.Workspace("ws")

	for _, text := range []string{"", "   ", "\n\t "} {
		if got := svc.Synthesize(context.Background(), ws, text); got != Skipped {
			t.Errorf("Synthesize(%q) = %v, want Skipped", text, got)
		}
	}

	if gen.calls != 0 {
		t.Errorf("generator called %d times, want 0", gen.calls)
	}
	snap := ws.Snapshot()
	if len(snap.Clips) != 0 || snap.Notice.Kind != NoticeNone {
		t.Errorf("unexpected state after no-op: %+v", snap)
	}
}

func TestSynthesize_SuccessPrependsExactlyOne(t *testing.T) {
	gen := &mockGenerator{}
	svc := newTestService(t, gen, 0)
	ws := svc.Workspace("ws")

	svc.Synthesize(context.Background(), ws, "first")
	before := ws.Snapshot().Clips

	if got := svc.Synthesize(context.Background(), ws, "second"); got != Succeeded {
		t.Fatalf("Synthesize() = %v, want Succeeded", got)
	}

	snap := ws.Snapshot()
	if len(snap.Clips) != len(before)+1 {
		t.Fatalf("len(clips) = %d, want %d", len(snap.Clips), len(before)+1)
	}
	if snap.Clips[0].Text != "second" {
		t.Errorf("newest clip = %q, want second", snap.Clips[0].Text)
	}
	for i, c := range before {
		if snap.Clips[i+1].ID != c.ID || snap.Clips[i+1].Text != c.Text {
			t.Errorf("prior clip %d changed: %+v -> %+v", i, c, snap.Clips[i+1])
		}
	}
	if snap.Clips[0].ID <= snap.Clips[1].ID {
		t.Error("clip IDs must increase with creation time")
	}
	if snap.Notice != (Notice{Kind: NoticeSuccess, Text: "Speech generated successfully!"}) {
		t.Errorf("notice = %+v", snap.Notice)
	}
	if snap.Draft != "second" {
		t.Errorf("draft = %q, want second", snap.Draft)
	}
}

func TestSynthesize_FailureLeavesHistoryUnchanged(t *testing.T) {
	fail := false
	gen := &mockGenerator{
		generateFn: func(ctx context.Context, text, model string) (*Audio, error) {
			if fail {
				return nil, &StatusError{StatusCode: 502, Body: "bad gateway"}
			}
			return &Audio{Data: []byte("ok"), ContentType: "audio/mpeg"}, nil
		},
	}
	svc := newTestService(t, gen, 0)
	ws := svc.Workspace("ws")
	svc.Synthesize(context.Background(), ws, "kept")

	fail = true
	if got := svc.Synthesize(context.Background(), ws, "lost"); got != Failed {
		t.Fatalf("Synthesize() = %v, want Failed", got)
	}

	snap := ws.Snapshot()
	if len(snap.Clips) != 1 || snap.Clips[0].Text != "kept" {
		t.Errorf("history changed on failure: %+v", snap.Clips)
	}
	if snap.Notice != (Notice{Kind: NoticeError, Text: "Failed to connect to the backend. Please try again."}) {
		t.Errorf("notice = %+v", snap.Notice)
	}
}

func TestSynthesize_TransportErrorSameMessage(t *testing.T) {
	gen := &mockGenerator{
		generateFn: func(ctx context.Context, text, model string) (*Audio, error) {
			return nil, errors.New("dial tcp: connection refused")
		},
	}
	svc := newTestService(t, gen, 0)
	ws := svc.Workspace("ws")

	svc.Synthesize(context.Background(), ws, "hello")

	if ws.Snapshot().Notice.Text != MsgFailure {
		t.Errorf("notice = %+v", ws.Snapshot().Notice)
	}
}

func TestSynthesize_SendsSelectedModel(t *testing.T) {
	gen := &mockGenerator{}
	svc := newTestService(t, gen, 0)
	ws := svc.Workspace("ws")

	svc.Synthesize(context.Background(), ws, "hello")
	if gen.lastModel != "default" {
		t.Errorf("model = %q, want default", gen.lastModel)
	}

	ws.Select(model.VoiceModel{ID: "m-7"})
	svc.Synthesize(context.Background(), ws, "hello")
	if gen.lastModel != "m-7" {
		t.Errorf("model = %q, want m-7", gen.lastModel)
	}
	if clip := ws.Snapshot().Clips[0]; clip.Model != "m-7" {
		t.Errorf("clip model = %q, want m-7", clip.Model)
	}
}

func TestService_ClipLookupDoesNotCreateWorkspace(t *testing.T) {
	svc := newTestService(t, &mockGenerator{}, 0)

	if _, ok := svc.Clip("unknown", 1); ok {
		t.Error("unexpected clip for unknown workspace")
	}
	if svc.registry.Count() != 0 {
		t.Error("Clip must not create a workspace")
	}

	ws := svc.Workspace("ws")
	svc.Synthesize(context.Background(), ws, "hello")
	id := ws.Snapshot().Clips[0].ID

	clip, ok := svc.Clip("ws", id)
	if !ok || string(clip.Data) != "mp3" {
		t.Errorf("Clip() = %+v, %v", clip, ok)
	}

	svc.Release("ws")
	if _, ok := svc.Clip("ws", id); ok {
		t.Error("clip must be released with its workspace")
	}
}
