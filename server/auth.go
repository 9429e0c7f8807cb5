package server

import (
	"net/http"
	"trendsetter/accounts"
	"trendsetter/server/middleware"
	"trendsetter/storage/models"

	log "github.com/sirupsen/logrus"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var request registerRequest
	if err := decodeJson(w, r, &request); err != nil {
		writeError(w, err, "User")
		return
	}

	user, err := s.accounts.Register(r.Context(), accounts.RegisterInput{
		Email:    request.Email,
		Password: request.Password,
		Username: request.Username,
		FullName: request.FullName,
	})
	if err != nil {
		writeError(w, err, "User")
		return
	}

	s.sendSession(w, http.StatusCreated, user)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var request loginRequest
	if err := decodeJson(w, r, &request); err != nil {
		writeError(w, err, "User")
		return
	}

	user, err := s.accounts.VerifyCredentials(r.Context(), request.Email, request.Password)
	if err != nil {
		writeError(w, err, "User")
		return
	}

	s.sendSession(w, http.StatusOK, user)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	if err := s.denylist.Revoke(r.Context(), claims.TokenId, claims.ExpiresAt); err != nil {
		writeError(w, err, "Token")
		return
	}
	log.WithField("user_id", claims.UserId).Info("User logged out")
	sendJson(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) sendSession(w http.ResponseWriter, statusCode int, user *models.User) {
	token, _, err := s.issuer.Issue(user.Id.Hex())
	if err != nil {
		writeError(w, err, "User")
		return
	}
	sendJson(w, statusCode, authResponse{Token: token, User: user})
}
