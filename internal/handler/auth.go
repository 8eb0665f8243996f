package handler

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/zorasurvey/surveyd/internal/store"
)

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// handleLogin verifies the operator password against the stored bcrypt hash
// and issues an opaque admin token.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Password == "" {
		writeErrorMessage(w, http.StatusBadRequest, "password is required")
		return
	}

	hash, err := h.store.GetMetadata(store.MetaAdminPasswordHash)
	if err != nil {
		writeError(w, err)
		return
	}
	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		writeErrorMessage(w, http.StatusUnauthorized, "incorrect password")
		return
	}

	token, err := h.store.CreateAuthToken()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

// handleLogout revokes the presented admin token. Logging out with no token
// is not an error.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := bearerToken(r); token != "" {
		if err := h.store.DeleteAuthToken(token); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
