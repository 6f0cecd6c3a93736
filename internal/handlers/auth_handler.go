package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"racingplate/internal/models"
	"racingplate/internal/ratelimit"
	"racingplate/internal/services"
)

type AuthHandler struct {
	users   services.UserService
	limiter *ratelimit.Limiter
}

func NewAuthHandler(users services.UserService, limiter *ratelimit.Limiter) *AuthHandler {
	return &AuthHandler{users: users, limiter: limiter}
}

func (h *AuthHandler) allow(c *gin.Context, email string) bool {
	if h.limiter.Allow(email) {
		return true
	}
	c.JSON(http.StatusTooManyRequests, gin.H{
		"error":   "Too many attempts",
		"message": "Too many authentication attempts. Please try again later.",
	})
	return false
}

// @Summary      Create an account
// @Description  Registers a new user and emails a verification code
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        signup  body      models.SignupRequest  true  "Signup data"
// @Success      201     {object}  map[string]interface{}
// @Failure      400     {object}  map[string]interface{}
// @Failure      409     {object}  map[string]string
// @Failure      429     {object}  map[string]string
// @Router       /api/auth/signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req models.SignupRequest
	if !bindJSON(c, &req) {
		return
	}
	if !h.allow(c, req.Email) {
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Email, req.Password, req.Username)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "User already exists"})
			return
		}
		serverError(c, "auth.signup", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"user":    user,
	})
}

// @Summary      Log in
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        login  body      models.LoginRequest  true  "Credentials"
// @Success      200    {object}  map[string]interface{}
// @Failure      401    {object}  map[string]string
// @Failure      429    {object}  map[string]string
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	if !h.allow(c, req.Email) {
		return
	}

	user, token, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			// one message for unknown email and wrong password
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		serverError(c, "auth.login", err)
		return
	}
	h.limiter.Forget(req.Email)

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"user":    user,
	})
}

// @Summary      Verify email address
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        verify  body      models.VerifyEmailRequest  true  "Email and 6-digit code"
// @Success      200     {object}  map[string]interface{}
// @Failure      400     {object}  map[string]string
// @Router       /api/auth/verify-email [post]
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req models.VerifyEmailRequest
	if !bindJSON(c, &req) {
		return
	}
	if !h.allow(c, req.Email) {
		return
	}

	user, token, err := h.users.VerifyEmail(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		if !h.respondCodeError(c, err) {
			serverError(c, "auth.verify-email", err)
		}
		return
	}
	h.limiter.Forget(req.Email)

	c.JSON(http.StatusOK, gin.H{
		"message": "Email verified successfully",
		"token":   token,
		"user":    user,
	})
}

// @Summary      Resend verification code
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        resend  body      models.ResendCodeRequest  true  "Email"
// @Success      200     {object}  map[string]string
// @Router       /api/auth/resend-code [post]
func (h *AuthHandler) ResendCode(c *gin.Context) {
	var req models.ResendCodeRequest
	if !bindJSON(c, &req) {
		return
	}
	if !h.allow(c, req.Email) {
		return
	}

	if err := h.users.ResendVerification(c.Request.Context(), req.Email); err != nil {
		if errors.Is(err, services.ErrDeliveryFailed) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send verification email"})
			return
		}
		serverError(c, "auth.resend-code", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Verification code sent"})
}

// @Summary      Request a password reset code
// @Description  Responds 200 whether or not the email exists
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        forgot  body      models.ForgotPasswordRequest  true  "Email"
// @Success      200     {object}  map[string]string
// @Failure      500     {object}  map[string]string
// @Router       /api/auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req models.ForgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if !h.allow(c, req.Email) {
		return
	}

	if err := h.users.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		if errors.Is(err, services.ErrDeliveryFailed) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send reset email"})
			return
		}
		serverError(c, "auth.forgot-password", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset code sent to your email"})
}

// @Summary      Reset password with a code
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        reset  body      models.ResetPasswordRequest  true  "Email, code and new password"
// @Success      200    {object}  map[string]string
// @Failure      400    {object}  map[string]string
// @Router       /api/auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if !h.allow(c, req.Email) {
		return
	}

	if err := h.users.ResetPassword(c.Request.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		if !h.respondCodeError(c, err) {
			serverError(c, "auth.reset-password", err)
		}
		return
	}
	h.limiter.Forget(req.Email)
	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully"})
}

// respondCodeError maps verification-code errors; reports whether it answered.
func (h *AuthHandler) respondCodeError(c *gin.Context, err error) bool {
	var msg string
	switch {
	case errors.Is(err, services.ErrCodeNotFound):
		msg = "No verification code found for this email"
	case errors.Is(err, services.ErrCodeExpired):
		msg = "Verification code has expired"
	case errors.Is(err, services.ErrCodeMismatch):
		msg = "Invalid verification code"
	default:
		return false
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
	return true
}
