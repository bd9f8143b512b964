package handlers

import (
	"AssiScan/internal/config"
	"AssiScan/internal/middleware"
	"AssiScan/internal/service"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// AdminHandler - вход и выход администратора.
type AdminHandler struct {
	AdminService *service.AdminService
	Logger       *zap.SugaredLogger
	Config       *config.Config
}

// NewAdminHandler создаёт хендлер администратора
func NewAdminHandler(adminService *service.AdminService, logger *zap.SugaredLogger, cfg *config.Config) *AdminHandler {
	return &AdminHandler{AdminService: adminService, Logger: logger, Config: cfg}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login принимает JSON или форму username/password и ставит cookie auth_token.
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.Logger.Warnw("Login: invalid request body", "error", err)
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
	} else {
		req.Username = r.FormValue("username")
		req.Password = r.FormValue("password")
	}

	uid, err := h.AdminService.Login(req.Username, req.Password)
	if err != nil {
		h.Logger.Infow("Login: rejected", "username", req.Username)
		http.Error(w, "Invalid Credentials", http.StatusUnauthorized)
		return
	}
	if err := middleware.SetLoginCookie(w, uid, h.Config.AuthSecret); err != nil {
		h.Logger.Errorw("Login: set cookie", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Logout удаляет cookie.
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearLoginCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Status сообщает, авторизован ли запрос.
func (h *AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.GetUserIDFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": ok,
		"user_id":       uid,
	})
}
