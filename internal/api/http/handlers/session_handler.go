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

// SessionHandler exposes the operator's session on the portal.
type SessionHandler struct {
	session *service.SessionService
}

// NewSessionHandler constructs handler.
func NewSessionHandler(session *service.SessionService) *SessionHandler {
	return &SessionHandler{session: session}
}

// LoginPage handles GET /login, the target of guard redirects.
func (h *SessionHandler) LoginPage(c *fiber.Ctx) error {
	snap := h.session.Snapshot()
	if snap.IsAuthenticated {
		return c.Redirect(auth.HomePath, fiber.StatusFound)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "sign in with POST /auth/login",
		"data":    dto.NewSessionResponse(snap),
	})
}

// Login handles POST /auth/login.
func (h *SessionHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload")
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required")
	}

	if err := h.session.Login(c.UserContext(), req.Email, req.Password, req.RememberMe); err != nil {
		return h.failure(err, "Login failed")
	}
	return respond(c, http.StatusOK, dto.NewSessionResponse(h.session.Snapshot()))
}

// Register handles POST /auth/register.
func (h *SessionHandler) Register(c *fiber.Ctx) error {
	var req domain.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload")
	}

	if err := h.session.Register(c.UserContext(), req); err != nil {
		return h.failure(err, "Registration failed")
	}
	return respond(c, http.StatusCreated, dto.NewSessionResponse(h.session.Snapshot()))
}

// Logout handles POST /auth/logout. It always succeeds.
func (h *SessionHandler) Logout(c *fiber.Ctx) error {
	h.session.Logout(c.UserContext())
	return respondMessage(c, http.StatusOK, "Logged out")
}

// Refresh handles POST /auth/refresh, an explicit token rotation.
func (h *SessionHandler) Refresh(c *fiber.Ctx) error {
	ok, err := h.session.RefreshAccessToken(c.UserContext())
	if !ok {
		return apperrors.NewSessionExpired(err)
	}
	return respond(c, http.StatusOK, dto.NewSessionResponse(h.session.Snapshot()))
}

// ChangePassword handles POST /auth/change-password.
func (h *SessionHandler) ChangePassword(c *fiber.Ctx) error {
	var req dto.PasswordChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload")
	}
	if err := h.session.ChangePassword(c.UserContext(), req.CurrentPassword, req.NewPassword); err != nil {
		return h.failure(err, "Password change failed")
	}
	return respondMessage(c, http.StatusOK, "Password changed")
}

// ForgotPassword handles POST /auth/forgot-password.
func (h *SessionHandler) ForgotPassword(c *fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload")
	}
	if err := h.session.ForgotPassword(c.UserContext(), req.Email); err != nil {
		return h.failure(err, "Request failed")
	}
	return respondMessage(c, http.StatusOK, "If the email exists, a reset link has been sent")
}

// Session handles GET /session.
func (h *SessionHandler) Session(c *fiber.Ctx) error {
	return respond(c, http.StatusOK, dto.NewSessionResponse(h.session.Snapshot()))
}

// Permissions handles GET /session/permissions.
func (h *SessionHandler) Permissions(c *fiber.Ctx) error {
	resp := dto.PermissionsResponse{Permissions: []string{}}
	if user := h.session.Snapshot().User; user != nil {
		resp.Role = user.Role
		for _, p := range auth.PermissionsFor(user.Role) {
			if h.session.HasPermission(p) {
				resp.Permissions = append(resp.Permissions, string(p))
			}
		}
	}
	return respond(c, http.StatusOK, resp)
}

// ClearError handles DELETE /session/error.
func (h *SessionHandler) ClearError(c *fiber.Ctx) error {
	h.session.ClearError()
	return c.SendStatus(http.StatusNoContent)
}

// ReloadProfile handles POST /session/profile.
func (h *SessionHandler) ReloadProfile(c *fiber.Ctx) error {
	if err := h.session.FetchCurrentUser(c.UserContext()); err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewSessionResponse(h.session.Snapshot()))
}

// failure renders controller errors with the message the session recorded.
func (h *SessionHandler) failure(err error, fallback string) error {
	domainErr := apperrors.ToDomainError(err)
	out := *domainErr
	out.Message = apperrors.UserMessage(err, fallback)
	return &out
}
