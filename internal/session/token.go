package session

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// maxUnquoteDepth はJSON文字列として多重エンコードされたトークンを復元する最大段数。
const maxUnquoteDepth = 3

// CanonicalToken は保存値をトークンの正規形（引用符なしの生テキスト）に変換する。
// 旧形式でJSON文字列リテラルとして保存された値（"\"abc\""）は展開する。
// 空白のみの値は空文字列を返す。
func CanonicalToken(stored string) string {
	v := strings.TrimSpace(stored)
	for i := 0; i < maxUnquoteDepth; i++ {
		if len(v) < 2 || v[0] != '"' || v[len(v)-1] != '"' {
			break
		}
		var s string
		if err := json.Unmarshal([]byte(v), &s); err != nil {
			break
		}
		v = strings.TrimSpace(s)
	}
	return v
}

// ExpiresAt はトークンがJWTでありexpクレームを持つ場合、その有効期限を返す。
// 署名は検証しない。JWTでない場合やexpがない場合はokがfalseとなる。
func ExpiresAt(token string) (time.Time, bool) {
	if strings.Count(token, ".") != 2 {
		return time.Time{}, false
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// IsExpired はトークンの有効期限がnow以前であるかを判定する。
// 有効期限を判定できないトークンは期限切れとみなさない。
func IsExpired(token string, now time.Time) bool {
	exp, ok := ExpiresAt(token)
	if !ok {
		return false
	}
	return !now.Before(exp)
}

// maskToken はログ出力用にトークンの先頭数文字のみを残す。
func maskToken(token string) string {
	const visible = 4
	if len(token) <= visible {
		return strings.Repeat("*", len(token))
	}
	return token[:visible] + "****"
}
