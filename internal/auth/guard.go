package auth

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/salescrm/crm-portal/internal/domain"
	apperrors "github.com/salescrm/crm-portal/pkg/util/errorutil"
)

const (
	LoginPath = "/login"
	HomePath  = "/dashboard"
)

// loadingRetryAfter is the Retry-After hint sent while the session is
// still being restored.
const loadingRetryAfter = 1

// Decision is the outcome of a route guard check.
type Decision int

const (
	DecisionLoading Decision = iota
	DecisionRedirectLogin
	DecisionRedirectHome
	DecisionAllow
)

func (d Decision) String() string {
	switch d {
	case DecisionLoading:
		return "loading"
	case DecisionRedirectLogin:
		return "redirect_login"
	case DecisionRedirectHome:
		return "redirect_home"
	case DecisionAllow:
		return "allow"
	}
	return "unknown"
}

// SessionSource is the read side of the token store the guard needs.
type SessionSource interface {
	Hydrated() bool
	Snapshot() domain.Session
}

// Decide gates a route on the session. An empty allowed list admits any
// signed-in user.
func Decide(hydrated bool, session domain.Session, allowed ...domain.Role) Decision {
	if !hydrated {
		return DecisionLoading
	}
	if !session.IsAuthenticated || session.User == nil {
		return DecisionRedirectLogin
	}
	if len(allowed) > 0 && !HasRole(session, allowed...) {
		return DecisionRedirectHome
	}
	return DecisionAllow
}

// Guard turns route decisions into fiber handlers.
type Guard struct {
	sessions SessionSource
}

// NewGuard builds a guard reading from sessions.
func NewGuard(sessions SessionSource) *Guard {
	return &Guard{sessions: sessions}
}

// RequireSession admits any signed-in user.
func (g *Guard) RequireSession() fiber.Handler {
	return g.RequireRole()
}

// RequireRole admits signed-in users holding one of roles.
func (g *Guard) RequireRole(roles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		decision := Decide(g.sessions.Hydrated(), g.sessions.Snapshot(), roles...)
		return g.apply(c, decision)
	}
}

// RequirePermission admits signed-in users whose role grants perm. Unlike
// the role gates it answers 403 instead of redirecting, for API routes.
func (g *Guard) RequirePermission(perm Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session := g.sessions.Snapshot()
		decision := Decide(g.sessions.Hydrated(), session)
		if decision != DecisionAllow {
			return g.apply(c, decision)
		}
		if !HasPermission(session, perm) {
			return apperrors.NewForbidden("missing permission " + string(perm))
		}
		return c.Next()
	}
}

func (g *Guard) apply(c *fiber.Ctx, decision Decision) error {
	switch decision {
	case DecisionLoading:
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(loadingRetryAfter))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"success": false,
			"message": "session is loading",
		})
	case DecisionRedirectLogin:
		return c.Redirect(LoginPath, fiber.StatusFound)
	case DecisionRedirectHome:
		return c.Redirect(HomePath, fiber.StatusFound)
	}
	return c.Next()
}
