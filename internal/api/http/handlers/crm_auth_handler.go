package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/salescrm/crm-portal/internal/api/dto"
	"github.com/salescrm/crm-portal/internal/auth"
	"github.com/salescrm/crm-portal/internal/domain"
	"github.com/salescrm/crm-portal/internal/service"
	apperrors "github.com/salescrm/crm-portal/pkg/util/errorutil"
)

// CRMAuthHandler serves the /auth endpoints of the development CRM API.
type CRMAuthHandler struct {
	auth *service.AuthService
}

// NewCRMAuthHandler constructs handler.
func NewCRMAuthHandler(authService *service.AuthService) *CRMAuthHandler {
	return &CRMAuthHandler{auth: authService}
}

// Register handles POST /auth/register.
func (h *CRMAuthHandler) Register(c *fiber.Ctx) error {
	var req domain.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload")
	}

	payload, err := h.auth.Register(c.UserContext(), req)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, payload)
}

// Login handles POST /auth/login.
func (h *CRMAuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload")
	}

	payload, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, payload)
}

// Refresh handles POST /auth/refresh.
func (h *CRMAuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload")
	}

	tokens, err := h.auth.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, domain.RefreshPayload{Tokens: *tokens})
}

// ForgotPassword handles POST /auth/forgot-password.
func (h *CRMAuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload")
	}
	if err := h.auth.ForgotPassword(c.UserContext(), req.Email); err != nil {
		return err
	}
	return respondMessage(c, http.StatusOK, "If the email exists, a reset link has been sent")
}

// Logout handles POST /auth/logout.
func (h *CRMAuthHandler) Logout(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.auth.Logout(c.UserContext(), claims.Subject); err != nil {
		return err
	}
	return respondMessage(c, http.StatusOK, "Logged out")
}

// Me handles GET /auth/me.
func (h *CRMAuthHandler) Me(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	user, err := h.auth.Me(c.UserContext(), claims.Subject)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, domain.ProfilePayload{User: user})
}

// ChangePassword handles POST /auth/change-password.
func (h *CRMAuthHandler) ChangePassword(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.PasswordChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload")
	}
	if err := h.auth.ChangePassword(c.UserContext(), claims.Subject, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return respondMessage(c, http.StatusOK, "Password changed")
}

// EmptyList answers a protected CRM collection route with no items, so
// the portal's passthrough can be exercised against the stub.
func (h *CRMAuthHandler) EmptyList(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    []any{},
		"meta":    domain.PageMeta{Page: 1, Limit: 20},
	})
}
