// Package model はドメインモデルを定義する。
package model

// Role はユーザーの権限ロールを表す。
type Role string

const (
	// RoleUser は一般ユーザー。
	RoleUser Role = "user"
	// RoleAdmin は管理者ユーザー。
	RoleAdmin Role = "admin"
)

// Profile は認証APIから取得したユーザープロフィールを表す。
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Session は現在のログインセッションを表す。
// Tokenが空の場合は未ログイン状態。
// ProfileResolvedがfalseの場合、トークン復元直後でプロフィールが未取得であることを示す。
type Session struct {
	Token           string
	Profile         *Profile
	ProfileResolved bool
}

// Credentials は認証APIのログイン・登録成功時の応答を表す。
type Credentials struct {
	Token   string
	Profile Profile
}

// LoginRequest はログイン要求の入力値。
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest はユーザー登録要求の入力値。
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
