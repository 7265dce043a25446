package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/rshakya/taskhub-be/internal/auth"
	"github.com/rshakya/taskhub-be/internal/images"
	"github.com/rshakya/taskhub-be/internal/mailer"
	"github.com/rshakya/taskhub-be/internal/services"
)

// maxAvatarBytes caps the multipart upload body for avatar uploads.
const maxAvatarBytes = 10_000_000

// UserHandler handles HTTP requests for user management.
type UserHandler struct {
	service services.UserServiceProvider
	mailer  mailer.Mailer
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.UserServiceProvider, m mailer.Mailer) *UserHandler {
	return &UserHandler{service: service, mailer: m}
}

// SignupPayload defines the structure for signup requests.
type SignupPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Age      int    `json:"age"`
}

// LoginPayload defines the structure for login requests.
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup handles new user registration.
func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var payload SignupPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.service.CreateUser(payload.Name, payload.Email, payload.Password, payload.Age)
	if err != nil {
		log.Warn().Err(err).Str("email", payload.Email).Msg("Failed to sign up user")
		writeServiceError(w, err)
		return
	}

	// Delivery failure must never fail the signup.
	go func() {
		if err := h.mailer.SendWelcome(context.Background(), user.Email, user.Name); err != nil {
			log.Warn().Err(err).Str("email", user.Email).Msg("Failed to send welcome email")
		}
	}()

	token, err := h.service.IssueToken(user.ID)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to issue token")
		respondError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"user":  user,
		"token": token,
	})
}

// Login handles user authentication and session token issuance. Any
// credential mismatch gets the same generic 400 so the response does not
// reveal whether the email exists.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.service.AuthenticateUser(payload.Email, payload.Password)
	if err != nil {
		log.Warn().Err(err).Str("email", payload.Email).Msg("Failed authentication attempt")
		respondError(w, http.StatusBadRequest, "unable to login")
		return
	}

	token, err := h.service.IssueToken(user.ID)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to issue token")
		respondError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"user":  user,
		"token": token,
	})
}

// Logout revokes exactly the session token the request authenticated with.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	token, tok := auth.TokenFrom(r.Context())
	if !ok || !tok {
		log.Error().Msg("Could not retrieve user or token from context")
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := h.service.RevokeToken(user.ID, token); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to revoke token")
		respondError(w, http.StatusInternalServerError, "failed to logout")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// LogoutAll revokes every session token the user holds.
func (h *UserHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user from context")
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := h.service.RevokeAllTokens(user.ID); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to revoke tokens")
		respondError(w, http.StatusInternalServerError, "failed to logout")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "logged out everywhere"})
}

// GetMe returns the currently authenticated user.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user from context")
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

var allowedUserUpdates = map[string]bool{
	"name":     true,
	"email":    true,
	"password": true,
	"age":      true,
}

// UpdateMe applies a partial profile update. The field set is an
// allow-list: any unknown key rejects the whole request before a single
// field is applied.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user from context")
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	var fields map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	for key := range fields {
		if !allowedUserUpdates[key] {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid update field: %s", key))
			return
		}
	}

	var upd services.UserUpdate
	if raw, ok := fields["name"]; ok {
		if err := json.Unmarshal(raw, &upd.Name); err != nil {
			respondError(w, http.StatusBadRequest, "invalid value for name")
			return
		}
	}
	if raw, ok := fields["email"]; ok {
		if err := json.Unmarshal(raw, &upd.Email); err != nil {
			respondError(w, http.StatusBadRequest, "invalid value for email")
			return
		}
	}
	if raw, ok := fields["password"]; ok {
		if err := json.Unmarshal(raw, &upd.Password); err != nil {
			respondError(w, http.StatusBadRequest, "invalid value for password")
			return
		}
	}
	if raw, ok := fields["age"]; ok {
		if err := json.Unmarshal(raw, &upd.Age); err != nil {
			respondError(w, http.StatusBadRequest, "invalid value for age")
			return
		}
	}

	updated, err := h.service.UpdateUser(user.ID, upd)
	if err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("Failed to update user")
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// DeleteMe removes the authenticated user's account and returns the
// deleted representation. Sessions and tasks cascade away with it.
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user from context")
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	deleted, err := h.service.DeleteUser(user.ID)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to delete user")
		respondError(w, http.StatusInternalServerError, "failed to delete account")
		return
	}

	go func() {
		if err := h.mailer.SendCancellation(context.Background(), deleted.Email, deleted.Name); err != nil {
			log.Warn().Err(err).Str("email", deleted.Email).Msg("Failed to send cancellation email")
		}
	}()

	respondJSON(w, http.StatusOK, deleted)
}

// UploadAvatar accepts a single multipart image, transcodes it to a fixed
// 250x250 PNG and stores it on the user.
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user from context")
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarBytes)

	file, header, err := r.FormFile("avatar")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusBadRequest, "avatar must be at most 10MB")
			return
		}
		respondError(w, http.StatusBadRequest, "avatar file is required")
		return
	}
	defer file.Close()

	// Extension check happens before any decoding.
	if !images.AllowedExtension(header.Filename) {
		respondError(w, http.StatusBadRequest, "please upload an image (jpg, jpeg or png)")
		return
	}

	avatar, err := images.NormalizeAvatar(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "uploaded file is not a valid image")
		return
	}

	if err := h.service.SetAvatar(user.ID, avatar); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to store avatar")
		respondError(w, http.StatusInternalServerError, "failed to store avatar")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "avatar uploaded"})
}

// DeleteAvatar clears the authenticated user's avatar.
func (h *UserHandler) DeleteAvatar(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user from context")
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := h.service.ClearAvatar(user.ID); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to clear avatar")
		respondError(w, http.StatusInternalServerError, "failed to delete avatar")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "avatar deleted"})
}

// GetAvatar serves a user's avatar publicly, by user id.
func (h *UserHandler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	avatar, err := h.service.GetAvatar(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(avatar)
}
