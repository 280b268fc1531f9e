// Package view はサーバー描画ページのテンプレートと静的ファイルを提供する。
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/hitoshi/voxly/internal/session"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// ページ名
const (
	PageHome         = "home"
	PageAbout        = "about"
	PageContact      = "contact"
	PageLogin        = "login"
	PageProfile      = "profile"
	PageTTS          = "tts"
	PageMyModels     = "my-models"
	PageBrowseModels = "browse-models"
	PageVoiceCloning = "voice-cloning"
	PagePricing      = "pricing"
	PageNotFound     = "not-found"
)

var pageNames = []string{
	PageHome,
	PageAbout,
	PageContact,
	PageLogin,
	PageProfile,
	PageTTS,
	PageMyModels,
	PageBrowseModels,
	PageVoiceCloning,
	PagePricing,
	PageNotFound,
}

// NavItem はヘッダーのナビゲーション項目。
type NavItem struct {
	Href  string
	Label string
}

var navItems = []NavItem{
	{Href: "/", Label: "Home"},
	{Href: "/browse-models", Label: "Browse Models"},
	{Href: "/tts", Label: "Text To Speech"},
	{Href: "/voice-cloning", Label: "Voice Cloning"},
	{Href: "/pricing", Label: "Pricing"},
}

// Page はレイアウトに渡す共通データ。
type Page struct {
	Title     string
	Path      string // ナビゲーションの現在位置
	State     session.State
	CSRFToken string
	Data      any // ページ固有のビューモデル
}

// Renderer はページ名ごとに解析済みのテンプレートを保持する。
type Renderer struct {
	pages map[string]*template.Template
}

// New は埋め込みテンプレートを解析してRendererを生成する。
func New() (*Renderer, error) {
	funcs := template.FuncMap{
		"navItems":  func() []NavItem { return navItems },
		"charsLeft": charsLeft,
		"datetime":  formatDateTime,
		"year":      func() int { return time.Now().Year() },
	}

	r := &Renderer{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templatesFS,
			"templates/layout.html",
			"templates/partials.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render はページをバッファに描画してからレスポンスに書き込む。
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, page Page) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page: %s", name)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", page); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// StaticHandler は/static/配下の静的ファイルを配信するハンドラーを返す。
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// charsLeft はヘッダーに表示する残り文字数を返す。プロフィールがない場合は0。
func charsLeft(state session.State) int {
	p, ok := state.Profile.Get()
	if !ok {
		return 0
	}
	return p.CharRemaining
}

func formatDateTime(t time.Time) string {
	return t.Local().Format("2006/01/02 15:04:05")
}
