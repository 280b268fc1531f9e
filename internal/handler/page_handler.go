package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/voxly/internal/catalog"
	"github.com/hitoshi/voxly/internal/middleware"
	"github.com/hitoshi/voxly/internal/model"
	"github.com/hitoshi/voxly/internal/session"
	"github.com/hitoshi/voxly/internal/view"
)

// CatalogLister はボイスモデルの一覧を返す。catalog.Catalogが満たす。
type CatalogLister interface {
	List(ctx context.Context, state session.State) ([]model.VoiceModel, error)
}

// PageHandler は静的ページ、プロフィール、モデル一覧のHTTPハンドラー。
type PageHandler struct {
	renderer PageRenderer
	owned    CatalogLister
	public   CatalogLister
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler(renderer PageRenderer, owned, public CatalogLister) *PageHandler {
	return &PageHandler{
		renderer: renderer,
		owned:    owned,
		public:   public,
	}
}

// Home はトップページを表示する。
// GET /
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, http.StatusOK, view.PageHome, "", nil)
}

// About は紹介ページを表示する。
// GET /about
func (h *PageHandler) About(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, http.StatusOK, view.PageAbout, "About", nil)
}

// Contact は問い合わせページを表示する。
// GET /contact
func (h *PageHandler) Contact(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, http.StatusOK, view.PageContact, "Contact", nil)
}

// VoiceCloning はボイスクローニングの案内ページを表示する。
// GET /voice-cloning
func (h *PageHandler) VoiceCloning(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, http.StatusOK, view.PageVoiceCloning, "Voice Cloning", nil)
}

// Login はログインページを表示する。ログイン済みの場合はトップへリダイレクトする。
// GET /login
func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	if middleware.StateFromContext(r.Context()).SignedIn() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	renderPage(w, r, h.renderer, http.StatusOK, view.PageLogin, "Login", nil)
}

// Profile はプロフィールページを表示する。
// GET /profile
func (h *PageHandler) Profile(w http.ResponseWriter, r *http.Request) {
	state := middleware.StateFromContext(r.Context())
	renderPage(w, r, h.renderer, http.StatusOK, view.PageProfile, "Profile", view.NewProfileView(state))
}

// MyModels はログインユーザーのモデル一覧を表示する。
// GET /my-models
func (h *PageHandler) MyModels(w http.ResponseWriter, r *http.Request) {
	data := listCatalog(r, h.owned, view.TabOwned)
	renderPage(w, r, h.renderer, http.StatusOK, view.PageMyModels, "My Models", data)
}

// BrowseModels は公開モデル一覧を表示する。
// GET /browse-models
func (h *PageHandler) BrowseModels(w http.ResponseWriter, r *http.Request) {
	data := listCatalog(r, h.public, view.TabPublic)
	renderPage(w, r, h.renderer, http.StatusOK, view.PageBrowseModels, "Browse Models", data)
}

// NotFound は存在しないページへのアクセスに404ページを返す。
func (h *PageHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, http.StatusNotFound, view.PageNotFound, "Not Found", nil)
}

// listCatalog はカタログを取得し、失敗時は画面表示用の文言を設定したCatalogViewを返す。
func listCatalog(r *http.Request, lister CatalogLister, source string) view.CatalogView {
	v := view.CatalogView{Source: source}
	models, err := lister.List(r.Context(), middleware.StateFromContext(r.Context()))
	if err != nil {
		v.Error = catalog.UserMessage(err)
		return v
	}
	v.Models = models
	return v
}
