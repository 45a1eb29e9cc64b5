// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizer はカタログAPIから取得した商品情報をサニタイズし、
// 画面に埋め込まれる文字列からスクリプトなどを除去する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 安全なタグと属性のみを通過させる。
package security

import (
	"html"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService は商品情報のサニタイズ機能のインターフェースを定義する。
type ContentSanitizerService interface {
	// SanitizeDescription は商品説明のHTMLをサニタイズする。
	// 許可タグ（p, br, ul, ol, li, strong, em）のみを通過させ、
	// リンク、画像、script、iframe、styleタグおよびon*イベント属性を除去する。
	SanitizeDescription(rawHTML string) string
	// SanitizeText はタイトルやカテゴリなどのプレーンテキストから全てのタグを除去する。
	SanitizeText(raw string) string
	// SanitizeImageURL はhttp/httpsの絶対URLのみを返し、それ以外は空文字列を返す。
	SanitizeImageURL(raw string) string
}

// allowedImageSchemes は商品画像URLとして許可するスキーム。
var allowedImageSchemes = []string{"http", "https"}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	description *bluemonday.Policy
	text        *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
func NewContentSanitizer() *contentSanitizer {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"strong", "em",
	)

	return &contentSanitizer{
		description: p,
		text:        bluemonday.StrictPolicy(),
	}
}

// SanitizeDescription は商品説明のHTMLをサニタイズする。
func (s *contentSanitizer) SanitizeDescription(rawHTML string) string {
	return strings.TrimSpace(s.description.Sanitize(rawHTML))
}

// SanitizeText はタグを除去したプレーンテキストを返す。
// StrictPolicyは&などをエスケープするため、表示用に元の文字へ戻す。
func (s *contentSanitizer) SanitizeText(raw string) string {
	return strings.TrimSpace(html.UnescapeString(s.text.Sanitize(raw)))
}

// SanitizeImageURL は画像URLを検証する。
func (s *contentSanitizer) SanitizeImageURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	scheme := strings.ToLower(u.Scheme)
	for _, allowed := range allowedImageSchemes {
		if scheme == allowed {
			return u.String()
		}
	}
	return ""
}
