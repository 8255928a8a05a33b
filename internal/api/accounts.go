package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/cexll/tasksync/internal/service"
)

type credentialsRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, sess service.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(h.svc.TokenTTL().Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func toSession(sess service.Session) sessionResponse {
	return sessionResponse{Token: sess.Token, Expiry: sess.ExpiresAt, User: toUser(sess.User)}
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, "Invalid request", err)
		return
	}
	sess, err := h.svc.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, "Registration failed", err)
		return
	}
	h.setSessionCookie(w, sess)
	writeJSON(w, http.StatusCreated, "User registered successfully", toSession(sess))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, "Invalid request", err)
		return
	}
	sess, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, "Login failed", err)
		return
	}
	h.setSessionCookie(w, sess)
	writeJSON(w, http.StatusAccepted, "Login successful", toSession(sess))
}

func (h *Handler) logout(w http.ResponseWriter, _ *http.Request) {
	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, "Logged out", nil)
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Profile(r.Context(), currentUser(r))
	if err != nil {
		h.writeError(w, r, "Failed to load profile", err)
		return
	}
	writeJSON(w, http.StatusOK, "Profile fetched", toUser(user))
}

type profileRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, "Invalid request", err)
		return
	}
	user, err := h.svc.UpdateProfile(r.Context(), currentUser(r), service.ProfilePatch{Name: req.Name, Email: req.Email})
	if err != nil {
		h.writeError(w, r, "Failed to update profile", err)
		return
	}
	writeJSON(w, http.StatusOK, "Profile updated", toUser(user))
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, "Invalid request", err)
		return
	}
	if err := h.svc.ChangePassword(r.Context(), currentUser(r), req.CurrentPassword, req.NewPassword); err != nil {
		h.writeError(w, r, "Failed to change password", err)
		return
	}
	writeJSON(w, http.StatusOK, "Password changed", nil)
}

type profilePictureRequest struct {
	ProfilePicture string `json:"profile_picture"`
}

func (h *Handler) updateProfilePicture(w http.ResponseWriter, r *http.Request) {
	var req profilePictureRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, "Invalid request", err)
		return
	}
	user, err := h.svc.UpdateProfilePicture(r.Context(), currentUser(r), req.ProfilePicture)
	if err != nil {
		h.writeError(w, r, "Failed to update profile picture", err)
		return
	}
	writeJSON(w, http.StatusOK, "Profile picture updated", toUser(user))
}

func (h *Handler) searchUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.SearchUsers(r.Context(), currentUser(r), strings.TrimSpace(r.URL.Query().Get("q")))
	if err != nil {
		h.writeError(w, r, "Search failed", err)
		return
	}
	out := make([]userMinimal, 0, len(users))
	for _, u := range users {
		out = append(out, userMinimal{ID: u.ID, Name: u.Name, Email: u.Email})
	}
	writeJSON(w, http.StatusOK, "Users fetched", out)
}

type emailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, "Invalid request", err)
		return
	}
	if err := h.svc.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.writeError(w, r, "Failed to request password reset", err)
		return
	}
	writeJSON(w, http.StatusOK, "If the email is registered, a reset code has been sent", nil)
}

func (h *Handler) verifyResetCode(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, "Invalid request", err)
		return
	}
	token, expiry, err := h.svc.VerifyResetCode(r.Context(), req.Email, strings.TrimSpace(req.Code))
	if err != nil {
		h.writeError(w, r, "Invalid reset code", err)
		return
	}
	writeJSON(w, http.StatusOK, "Reset code verified", map[string]any{
		"token":  token,
		"expiry": expiry,
	})
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, "Invalid request", err)
		return
	}
	if err := h.svc.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		h.writeError(w, r, "Failed to reset password", err)
		return
	}
	writeJSON(w, http.StatusOK, "Password has been reset", nil)
}
