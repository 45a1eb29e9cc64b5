package handler

import (
	"net/http"
)

// AuthHandler はログイン・登録・ログアウトのHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login はメールアドレスとパスワードでログインする。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if _, err := h.service.Login(r.Context(), req.Email, req.Password); err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.writeCurrentUser(w, r, http.StatusOK)
}

// Register はユーザーを登録してログインする。
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if _, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password); err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.writeCurrentUser(w, r, http.StatusCreated)
}

// Logout はセッションを破棄する。未ログインでも204を返す。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context()); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me は現在のユーザー情報を返す。未ログインでも200でauthenticated=falseを返す。
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	h.writeCurrentUser(w, r, http.StatusOK)
}

func (h *AuthHandler) writeCurrentUser(w http.ResponseWriter, r *http.Request, status int) {
	user, err := h.service.CurrentUser(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, status, user)
}
