package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/adilzhan-dev/account-service/internal/entity"
	"github.com/adilzhan-dev/account-service/internal/mailer"
	"github.com/adilzhan-dev/account-service/internal/usecase"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// AccountService is the controller core the HTTP adapter drives.
type AccountService interface {
	SignUp(ctx context.Context, in usecase.SignUpInput) (*entity.User, error)
	Verify(ctx context.Context, userID, tokenString string) error
	Login(ctx context.Context, email, password string) (*entity.User, string, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, userID, password string) error
	SignOut(ctx context.Context, userID string) error
}

type AccountHandler struct {
	service  AccountService
	validate *validator.Validate
	logger   *zap.Logger
}

func NewAccountHandler(service AccountService, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger.Named("AccountHTTPHandler"),
	}
}

type signUpRequest struct {
	FirstName   string `json:"firstName" validate:"required"`
	LastName    string `json:"lastName" validate:"required"`
	Username    string `json:"userName" validate:"required"`
	PhoneNumber string `json:"phoneNumber" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type userResponse struct {
	ID          string `json:"id"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Username    string `json:"userName"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email"`
	IsVerified  bool   `json:"isVerified"`
}

// toUserResponse strips the credential: the password hash never leaves the
// service in any payload.
func toUserResponse(u *entity.User) userResponse {
	return userResponse{
		ID:          u.ID.Hex(),
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Username:    u.Username,
		PhoneNumber: u.PhoneNumber,
		Email:       u.Email,
		IsVerified:  u.IsVerified,
	}
}

func (h *AccountHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Failed to decode request body for SignUp", zap.Error(err))
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.logger.Warn("SignUp validation failed", zap.Error(err))
		respondMessage(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	user, err := h.service.SignUp(r.Context(), usecase.SignUpInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Username:    req.Username,
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
		Password:    req.Password,
	})
	if err != nil {
		if errors.Is(err, usecase.ErrEmailExists) {
			// Same success status as creation, semantically "nothing created".
			respondMessage(w, http.StatusOK, "Email already exists")
			return
		}
		h.logger.Error("SignUp failed", zap.String("email", req.Email), zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "Internal server error: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "User profile created successfully",
		"data":    toUserResponse(user),
	})
	h.logger.Info("SignUp request processed successfully", zap.String("email", user.Email))
}

func (h *AccountHandler) Verify(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	tok := chi.URLParam(r, "token")

	err := h.service.Verify(r.Context(), userID, tok)
	if err != nil {
		if errors.Is(err, usecase.ErrLinkExpired) {
			respondText(w, http.StatusUnauthorized, "This link is expired. Kindly check your email for another email to verify.")
			return
		}
		h.logger.Error("Verification failed", zap.String("userID", userID), zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "Internal server error: "+err.Error())
		return
	}

	respondText(w, http.StatusOK, "You have been successfully verified. Kindly visit the login page.")
}

func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Failed to decode request body for Login", zap.Error(err))
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.logger.Warn("Login validation failed", zap.Error(err))
		respondMessage(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	user, tok, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrNotFound):
			respondMessage(w, http.StatusNotFound, "User not registered")
		case errors.Is(err, usecase.ErrInvalidCredentials):
			respondMessage(w, http.StatusNotFound, "Password is incorrect")
		case errors.Is(err, usecase.ErrNotVerified):
			respondMessage(w, http.StatusBadRequest, "Sorry user not verified yet.")
		default:
			h.logger.Error("Login failed", zap.String("email", req.Email), zap.Error(err))
			respondMessage(w, http.StatusInternalServerError, "Internal server error: "+err.Error())
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Welcome " + user.Username,
		"token":   tok,
	})
}

func (h *AccountHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Failed to decode request body for ForgotPassword", zap.Error(err))
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.logger.Warn("ForgotPassword validation failed", zap.Error(err))
		respondMessage(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			respondMessage(w, http.StatusNotFound, "Email does not exist")
			return
		}
		h.logger.Error("ForgotPassword failed", zap.String("email", req.Email), zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "Internal Server Error: "+err.Error())
		return
	}

	respondMessage(w, http.StatusOK, "Kindly check your email to reset your password")
}

func (h *AccountHandler) ResetPasswordPage(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(mailer.ResetPage(userID)))
}

func (h *AccountHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	// The reset page posts a form; API clients send JSON.
	var password string
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			respondMessage(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		password = r.FormValue("password")
	} else {
		var req struct {
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondMessage(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		password = req.Password
	}

	if err := h.service.ResetPassword(r.Context(), userID, password); err != nil {
		if errors.Is(err, usecase.ErrEmptyPassword) {
			respondMessage(w, http.StatusBadRequest, "Password cannot be empty")
			return
		}
		h.logger.Error("ResetPassword failed", zap.String("userID", userID), zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "Internal Server Error: "+err.Error())
		return
	}

	respondMessage(w, http.StatusOK, "Password reset successfully")
}

func (h *AccountHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	if err := h.service.SignOut(r.Context(), userID); err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			respondMessage(w, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Error("SignOut failed", zap.String("userID", userID), zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "Internal Server Error: "+err.Error())
		return
	}

	respondMessage(w, http.StatusCreated, "user has been signed out successfully")
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}

func respondText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Tag() == "email" {
			return fe.Field() + " must be a valid email address"
		}
		return fe.Field() + " is required"
	}
	return err.Error()
}
