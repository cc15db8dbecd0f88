package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"hrcore.io/internal/audit"
	"hrcore.io/internal/auth"
	"hrcore.io/internal/authz"
	"hrcore.io/internal/credential"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token              string    `json:"token"`
	ExpiresAt          time.Time `json:"expires_at"`
	MustChangePassword bool      `json:"must_change_password"`
	Role               string    `json:"role"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	session, principal, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleLoginError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"user_id": principal.ID,
	})
	writeJSON(w, http.StatusOK, loginResponse{
		Token:              session.Token,
		ExpiresAt:          session.ExpiresAt,
		MustChangePassword: session.MustChangePassword,
		Role:               string(principal.Role),
	})
}

func handleLoginError(w http.ResponseWriter, r *http.Request, err error) {
	var locked *auth.LockedError
	switch {
	case errors.As(err, &locked):
		if until := time.Until(locked.Until); until > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(until.Seconds())+1))
		}
		writeError(w, r, http.StatusForbidden, "account is temporarily locked")
	case errors.Is(err, auth.ErrAccountInactive):
		writeError(w, r, http.StatusForbidden, "account is inactive")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
	default:
		writeError(w, r, http.StatusInternalServerError, "login failed")
	}
}

// handleForgotPassword answers 202 for every well-formed request. Whether the
// address belongs to an account must not be observable.
func (a *API) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req forgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, r, http.StatusInternalServerError, "request failed")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status": "accepted",
	})
}

func (a *API) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	err := a.auth.ResetPassword(r.Context(), req.Email, req.Token, req.NewPassword)
	if err != nil {
		handlePasswordError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "password_updated",
	})
}

func (a *API) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		writeDecision(w, r, r.URL.Path, authz.Deny(authz.ReasonUnauthenticated))
		return
	}
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.auth.ChangePassword(r.Context(), principal.ID, req.CurrentPassword, req.NewPassword); err != nil {
		handlePasswordError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.password.changed", nil)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "password_updated",
	})
}

func handlePasswordError(w http.ResponseWriter, r *http.Request, err error) {
	var weak *auth.WeakPasswordError
	switch {
	case errors.As(err, &weak):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":      "password does not meet requirements",
			"violations": violationMessages(weak.Violations),
		})
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
	default:
		writeError(w, r, http.StatusInternalServerError, "operation failed")
	}
}

func violationMessages(violations []credential.Violation) []string {
	msgs := make([]string, len(violations))
	for i, v := range violations {
		msgs[i] = v.Message()
	}
	return msgs
}
