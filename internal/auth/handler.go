package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"

	"go.uber.org/zap"

	"github.com/moodnote/auth-service/internal/obs"
)

// forgotPasswordMessage is returned verbatim whether or not the email
// maps to an account; the two cases must not be distinguishable.
const forgotPasswordMessage = "If an account exists with this email, a password reset code has been sent."

type Handler struct {
	service *Service
	log     *zap.Logger
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log,
	}
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type accountResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type registerResponse struct {
	Account accountResponse `json:"account"`
	Message string          `json:"message"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" || req.Name == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email, name and password are required")
		return
	}
	if !isValidEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "invalid email format")
		return
	}

	account, err := h.service.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		h.writeServiceError(w, "register", err)
		return
	}

	obs.RecordAuthOperation("register", "success")
	writeJSON(w, http.StatusCreated, registerResponse{
		Account: accountResponse{ID: account.ID, Email: account.Email, Name: account.Name},
		Message: "Registration successful. Check your email to verify your account.",
	})
}

type verifyEmailRequest struct {
	Token string `json:"token"`
}

func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	if _, err := h.service.VerifyEmail(r.Context(), req.Token); err != nil {
		h.writeServiceError(w, "verify_email", err)
		return
	}

	obs.RecordAuthOperation("verify_email", "success")
	writeJSON(w, http.StatusOK, messageResponse{Message: "Email verified successfully. You can now login."})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	Account      accountResponse `json:"account"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	pair, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, "login", err)
		return
	}

	obs.RecordAuthOperation("login", "success")
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Account: accountResponse{
			ID:    pair.Account.ID,
			Email: pair.Account.Email,
			Name:  pair.Account.Name,
		},
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	accessToken, err := h.service.RefreshAccessToken(r.Context(), req.RefreshToken)
	if err != nil {
		h.writeServiceError(w, "refresh", err)
		return
	}

	obs.RecordAuthOperation("refresh", "success")
	writeJSON(w, http.StatusOK, refreshResponse{AccessToken: accessToken})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	h.service.ForgotPassword(r.Context(), req.Email)

	obs.RecordAuthOperation("forgot_password", "success")
	writeJSON(w, http.StatusOK, messageResponse{Message: forgotPasswordMessage})
}

type resetPasswordRequest struct {
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Code == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "code and new_password are required")
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Code, req.NewPassword); err != nil {
		h.writeServiceError(w, "reset_password", err)
		return
	}

	obs.RecordAuthOperation("reset_password", "success")
	writeJSON(w, http.StatusOK, messageResponse{Message: "Password reset successfully. Login with your new password."})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, err := ClaimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "current_password and new_password are required")
		return
	}

	if err := h.service.ChangePassword(r.Context(), claims.AccountID, req.CurrentPassword, req.NewPassword); err != nil {
		h.writeServiceError(w, "change_password", err)
		return
	}

	obs.RecordAuthOperation("change_password", "success")
	writeJSON(w, http.StatusOK, messageResponse{Message: "Password changed successfully."})
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	_ = h.service.Logout(r.Context(), req.RefreshToken)

	obs.RecordAuthOperation("logout", "success")
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out successfully."})
}

// writeServiceError maps the orchestrator's closed error set onto HTTP
// statuses. Anything outside the set is a 500 with a generic body.
func (h *Handler) writeServiceError(w http.ResponseWriter, operation string, err error) {
	obs.RecordAuthOperation(operation, "failure")

	switch {
	case errors.Is(err, ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrWeakPassword):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrSamePassword):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrAccountLocked):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, ErrEmailNotVerified), errors.Is(err, ErrAccountDeactivated):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrTokenUsed),
		errors.Is(err, ErrTokenRevoked),
		errors.Is(err, ErrTokenNotFound):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.log.Error("unexpected service error",
			zap.String("operation", operation),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.New("invalid request body")
	}
	return nil
}

func isValidEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}
