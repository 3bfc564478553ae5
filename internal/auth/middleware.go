package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/salescrm/crm-portal/pkg/util/errorutil"
)

const claimsKey = "auth_claims"

// BearerMiddleware validates access tokens issued by a TokenManager.
type BearerMiddleware struct {
	tokens *TokenManager
}

// NewBearerMiddleware constructs middleware.
func NewBearerMiddleware(tokens *TokenManager) *BearerMiddleware {
	return &BearerMiddleware{tokens: tokens}
}

// Handle enforces a valid bearer token on protected routes.
func (m *BearerMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewDomainError(apperrors.CategoryCredential, "NO_TOKEN", "missing authorization header", fiber.StatusUnauthorized)
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewDomainError(apperrors.CategoryCredential, "TOKEN_EXPIRED", "invalid or expired token", fiber.StatusUnauthorized)
	}

	c.Locals(claimsKey, claims)
	return c.Next()
}

// ClaimsFromContext retrieves the verified token claims.
func ClaimsFromContext(c *fiber.Ctx) (*Claims, bool) {
	val := c.Locals(claimsKey)
	if val == nil {
		return nil, false
	}
	claims, ok := val.(*Claims)
	return claims, ok
}
