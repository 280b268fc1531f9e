package handler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/voxly/internal/middleware"
	"github.com/hitoshi/voxly/internal/model"
	"github.com/hitoshi/voxly/internal/synthesis"
	"github.com/hitoshi/voxly/internal/view"
)

const (
	defaultAudioContentType = "audio/mpeg"
	downloadFileName        = "speech.mp3"
)

// SynthesisService は合成画面が必要とするサービスインターフェース。
// synthesis.Serviceが満たす。
type SynthesisService interface {
	Workspace(id string) *synthesis.Workspace
	Clip(workspaceID string, clipID int64) (model.AudioClip, bool)
	Synthesize(ctx context.Context, ws *synthesis.Workspace, text string) synthesis.Outcome
}

// TTSHandler は音声合成画面のHTTPハンドラー。
type TTSHandler struct {
	renderer PageRenderer
	service  SynthesisService
	catalogs map[string]CatalogLister // view.TabOwned / view.TabPublic
}

// NewTTSHandler はTTSHandlerを生成する。
func NewTTSHandler(renderer PageRenderer, service SynthesisService, owned, public CatalogLister) *TTSHandler {
	return &TTSHandler{
		renderer: renderer,
		service:  service,
		catalogs: map[string]CatalogLister{
			view.TabOwned:  owned,
			view.TabPublic: public,
		},
	}
}

// Show は合成画面を表示する。selectクエリがある場合はモデル選択ダイアログを開く。
// GET /tts?select=owned|public
func (h *TTSHandler) Show(w http.ResponseWriter, r *http.Request) {
	ws := h.service.Workspace(middleware.WorkspaceIDFromContext(r.Context()))

	var picker string
	var data view.CatalogView
	if tab := r.URL.Query().Get("select"); tab != "" {
		if lister, ok := h.catalogs[tab]; ok {
			picker = tab
			data = listCatalog(r, lister, tab)
		}
	}

	renderPage(w, r, h.renderer, http.StatusOK, view.PageTTS, "Text To Speech",
		view.NewTTSView(ws.Snapshot(), picker, data))
}

// Submit は入力テキストの合成またはクリアを行い、合成画面へリダイレクトする。
// POST /tts (action=generate|clear)
func (h *TTSHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("malformed form"))
		return
	}

	ws := h.service.Workspace(middleware.WorkspaceIDFromContext(r.Context()))

	if r.PostForm.Get("action") == "clear" {
		ws.ClearDraft()
		redirectSeeOther(w, r, "/tts")
		return
	}

	h.service.Synthesize(r.Context(), ws, r.PostForm.Get("text"))
	redirectSeeOther(w, r, "/tts")
}

// SelectModel は合成に使うモデルを選択または解除する。
// 選択時はカタログに存在するモデルIDのみ受け付ける。
// POST /tts/model (source, model_id | action=clear)
func (h *TTSHandler) SelectModel(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("malformed form"))
		return
	}

	ws := h.service.Workspace(middleware.WorkspaceIDFromContext(r.Context()))

	if r.PostForm.Get("action") == "clear" {
		ws.ClearSelection()
		redirectSeeOther(w, r, "/tts")
		return
	}

	source := r.PostForm.Get("source")
	lister, ok := h.catalogs[source]
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("unknown model source"))
		return
	}

	modelID := r.PostForm.Get("model_id")
	models, err := lister.List(r.Context(), middleware.StateFromContext(r.Context()))
	if err != nil {
		// ダイアログを開き直してエラー文言を表示する
		redirectSeeOther(w, r, "/tts?select="+source)
		return
	}
	for _, m := range models {
		if m.ID == modelID {
			ws.Select(m)
			redirectSeeOther(w, r, "/tts")
			return
		}
	}

	slog.Warn("selected model not found in catalog",
		slog.String("source", source),
		slog.String("model_id", modelID),
	)
	middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("unknown model"))
}

// Audio はワークスペースの音声を返す。download=1の場合は添付ファイルとして返す。
// GET /tts/audio/{id}
func (h *TTSHandler) Audio(w http.ResponseWriter, r *http.Request) {
	idParam := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewAudioNotFoundError(idParam))
		return
	}

	clip, ok := h.service.Clip(middleware.WorkspaceIDFromContext(r.Context()), id)
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewAudioNotFoundError(idParam))
		return
	}

	contentType := clip.ContentType
	if contentType == "" {
		contentType = defaultAudioContentType
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, no-store")
	if r.URL.Query().Get("download") == "1" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", downloadFileName))
	}

	http.ServeContent(w, r, downloadFileName, clip.CreatedAt, bytes.NewReader(clip.Data))
}
