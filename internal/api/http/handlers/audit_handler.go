package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/salescrm/crm-portal/internal/service"
)

// AuditHandler exposes recent session events.
type AuditHandler struct {
	audit *service.AuditService
}

// NewAuditHandler constructs handler.
func NewAuditHandler(audit *service.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// Recent handles GET /audit.
func (h *AuditHandler) Recent(c *fiber.Ctx) error {
	return respond(c, http.StatusOK, h.audit.Recent())
}
