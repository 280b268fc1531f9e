package synthesis

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/voxly/internal/model"
)

// NoticeKind は画面に表示する通知の種類。
type NoticeKind string

const (
	NoticeNone    NoticeKind = ""
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice は直前の合成結果の通知。
type Notice struct {
	Kind NoticeKind
	Text string
}

// Snapshot はワークスペースの表示用コピー。
type Snapshot struct {
	Draft    string
	Selected *model.VoiceModel
	Clips    []model.AudioClip // 新しい順
	Notice   Notice
}

// Workspace はブラウザ1つ分の合成状態（下書き、選択モデル、音声履歴）を保持する。
type Workspace struct {
	mu         sync.Mutex
	draft      string
	selected   *model.VoiceModel
	clips      []model.AudioClip
	notice     Notice
	lastAccess time.Time
}

// Snapshot は現在の状態のコピーを返す。
// 音声データのバイト列は共有するが、生成後に変更されることはない。
func (w *Workspace) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := Snapshot{
		Draft:  w.draft,
		Clips:  append([]model.AudioClip(nil), w.clips...),
		Notice: w.notice,
	}
	if w.selected != nil {
		m := *w.selected
		snap.Selected = &m
	}
	return snap
}

// Select は合成に使用するモデルを設定する。
func (w *Workspace) Select(m model.VoiceModel) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.selected = &m
}

// ClearSelection はモデル選択を解除する。以降は既定モデルで合成する。
func (w *Workspace) ClearSelection() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.selected = nil
}

// ModelID は合成エンドポイントへ送るモデルIDを返す。
func (w *Workspace) ModelID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.selected == nil || w.selected.ID == "" {
		return model.DefaultVoiceModelID
	}
	return w.selected.ID
}

// Clip は指定IDの音声を返す。
func (w *Workspace) Clip(id int64) (model.AudioClip, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, c := range w.clips {
		if c.ID == id {
			return c, true
		}
	}
	return model.AudioClip{}, false
}

// setDraft は下書きを保存する。
func (w *Workspace) setDraft(text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft = text
}

// ClearDraft は入力中のテキストと通知を消去する。履歴と選択モデルは残す。
func (w *Workspace) ClearDraft() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft = ""
	w.notice = Notice{}
}

// setNotice は通知を設定する。
func (w *Workspace) setNotice(n Notice) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.notice = n
}

// prepend は音声を履歴の先頭に追加する。
// IDは直前の先頭より必ず大きくなるよう調整する。
// limitが正の場合は上限を超えた古い音声を破棄する。
func (w *Workspace) prepend(clip model.AudioClip, limit int) model.AudioClip {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.clips) > 0 && clip.ID <= w.clips[0].ID {
		clip.ID = w.clips[0].ID + 1
	}

	clips := make([]model.AudioClip, 0, len(w.clips)+1)
	clips = append(clips, clip)
	clips = append(clips, w.clips...)
	if limit > 0 && len(clips) > limit {
		clear(clips[limit:])
		clips = clips[:limit]
	}
	w.clips = clips
	return clip
}

// release は保持している音声を解放する。
func (w *Workspace) release() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.clips = nil
	w.selected = nil
	w.draft = ""
	w.notice = Notice{}
}

// RegistryConfig はRegistryの設定。
type RegistryConfig struct {
	IdleTTL         time.Duration // 最終アクセスからこの時間を過ぎたワークスペースを破棄する
	CleanupInterval time.Duration
}

// Registry はワークスペースIDごとのWorkspaceを管理する。
type Registry struct {
	config RegistryConfig

	mu         sync.Mutex
	workspaces map[string]*Workspace

	now    func() time.Time
	stopCh chan struct{}
}

// NewRegistry は新しいRegistryを生成する。
// バックグラウンドでアイドル状態のワークスペースの破棄を開始する。
func NewRegistry(config RegistryConfig) *Registry {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	r := &Registry{
		config:     config,
		workspaces: make(map[string]*Workspace),
		now:        time.Now,
		stopCh:     make(chan struct{}),
	}

	go r.cleanupLoop()

	return r
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (r *Registry) Stop() {
	close(r.stopCh)
}

// NewWorkspaceID は新しいワークスペースIDを生成する。
func NewWorkspaceID() string {
	return uuid.NewString()
}

// Get は指定IDのワークスペースを取得する。存在しない場合は作成する。
func (r *Registry) Get(id string) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()

	ws, ok := r.workspaces[id]
	if !ok {
		ws = &Workspace{}
		r.workspaces[id] = ws
	}
	ws.mu.Lock()
	ws.lastAccess = r.now()
	ws.mu.Unlock()
	return ws
}

// Lookup は指定IDのワークスペースを返す。存在しない場合は作成しない。
func (r *Registry) Lookup(id string) (*Workspace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ws, ok := r.workspaces[id]
	return ws, ok
}

// Release はワークスペースを破棄し、保持している音声を解放する。
func (r *Registry) Release(id string) {
	r.mu.Lock()
	ws, ok := r.workspaces[id]
	delete(r.workspaces, id)
	r.mu.Unlock()

	if ok {
		ws.release()
	}
}

// Count は現在管理されているワークスペース数を返す。
// テストおよびメトリクス用。
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}

// cleanupLoop はバックグラウンドでアイドル状態のワークスペースを定期的に破棄する。
func (r *Registry) cleanupLoop() {
	ticker := time.NewTicker(r.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.evictIdle()
		case <-r.stopCh:
			return
		}
	}
}

// evictIdle は最終アクセスからIdleTTLを超えたワークスペースを破棄する。
// IdleTTLが0以下の場合は何もしない。
func (r *Registry) evictIdle() int {
	if r.config.IdleTTL <= 0 {
		return 0
	}

	now := r.now()
	var idle []*Workspace

	r.mu.Lock()
	for id, ws := range r.workspaces {
		ws.mu.Lock()
		expired := now.Sub(ws.lastAccess) > r.config.IdleTTL
		ws.mu.Unlock()
		if expired {
			idle = append(idle, ws)
			delete(r.workspaces, id)
		}
	}
	r.mu.Unlock()

	for _, ws := range idle {
		ws.release()
	}
	return len(idle)
}
