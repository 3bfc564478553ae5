package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salescrm/crm-portal/internal/domain"
	apperrors "github.com/salescrm/crm-portal/pkg/util/errorutil"
)

func TestBearerMiddleware(t *testing.T) {
	tokens := NewTokenManager("test-secret", 5)
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	})
	app.Get("/me", NewBearerMiddleware(tokens).Handle, func(c *fiber.Ctx) error {
		claims, ok := ClaimsFromContext(c)
		if !ok {
			return fiber.ErrInternalServerError
		}
		return c.SendString(claims.Subject)
	})

	token, _, err := tokens.GenerateToken(&domain.User{ID: "u1", Role: domain.RoleAgent})
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"malformed", "Token abc", http.StatusUnauthorized},
		{"forged", "Bearer " + mustForeignToken(t), http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func mustForeignToken(t *testing.T) string {
	t.Helper()
	token, _, err := NewTokenManager("other-secret", 5).GenerateToken(&domain.User{ID: "u1"})
	require.NoError(t, err)
	return token
}
