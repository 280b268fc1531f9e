// Package security はアプリケーションのセキュリティ機能を提供する。
//
// CatalogSanitizer は文書ストアから取得したモデルカタログのエントリを表示前に無害化する。
// 文書ストアは外部サービスから書き込まれるため、値は信頼しない。
package security

import (
	"html"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// maxTitleRunes はタイトルとして表示する最大文字数。
const maxTitleRunes = 200

// CatalogSanitizer はカタログエントリのタイトルと画像URLを無害化する。
// ポリシーは生成時に1回だけ構築し、並行利用できる。
type CatalogSanitizer struct {
	text *bluemonday.Policy
}

// NewCatalogSanitizer はCatalogSanitizerを生成する。
// タイトルにはbluemondayのStrictPolicyを適用し、全てのタグを除去する。
func NewCatalogSanitizer() *CatalogSanitizer {
	return &CatalogSanitizer{
		text: bluemonday.StrictPolicy(),
	}
}

// Title はタグを除去したプレーンテキストを返す。
// エスケープはテンプレート側で行うため、ここではエンティティを元に戻す。
// 前後の空白を除去し、長すぎる場合は切り詰める。
func (s *CatalogSanitizer) Title(raw string) string {
	plain := html.UnescapeString(s.text.Sanitize(raw))
	plain = strings.Join(strings.Fields(plain), " ")

	runes := []rune(plain)
	if len(runes) > maxTitleRunes {
		plain = string(runes[:maxTitleRunes])
	}
	return plain
}

// ImageURL はhttpまたはhttpsの絶対URLのみを返す。それ以外は空文字列を返す。
func (s *CatalogSanitizer) ImageURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if u.Host == "" {
		return ""
	}
	return u.String()
}
