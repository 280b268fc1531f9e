package handler

import (
	"log/slog"
	"net/http"

	"github.com/hitoshi/voxly/internal/middleware"
	"github.com/hitoshi/voxly/internal/view"
)

// PageRenderer はページを描画する。view.Rendererが満たす。
type PageRenderer interface {
	Render(w http.ResponseWriter, status int, name string, page view.Page) error
}

// newPage はリクエストのセッション状態とCSRFトークンを載せたPageを組み立てる。
func newPage(r *http.Request, title string, data any) view.Page {
	return view.Page{
		Title:     title,
		Path:      r.URL.Path,
		State:     middleware.StateFromContext(r.Context()),
		CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
		Data:      data,
	}
}

// renderPage はページを描画する。描画に失敗した場合は500を返す。
func renderPage(w http.ResponseWriter, r *http.Request, renderer PageRenderer, status int, name, title string, data any) {
	if err := renderer.Render(w, status, name, newPage(r, title, data)); err != nil {
		slog.Error("failed to render page",
			slog.String("page", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// redirectSeeOther はPOST後に303で画面を再表示させる。
func redirectSeeOther(w http.ResponseWriter, r *http.Request, url string) {
	http.Redirect(w, r, url, http.StatusSeeOther)
}
