package handlers

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/salescrm/crm-portal/internal/crmapi"
	"github.com/salescrm/crm-portal/internal/gateway"
	apperrors "github.com/salescrm/crm-portal/pkg/util/errorutil"
)

// SettingsView is the non-secret portal configuration shown to admins.
type SettingsView struct {
	APIBaseURL     string        `json:"apiBaseUrl"`
	SessionBackend string        `json:"sessionBackend"`
	StorageKey     string        `json:"storageKey"`
	RequestTimeout time.Duration `json:"requestTimeout"`
	Version        string        `json:"version"`
}

// WorkspaceHandler passes the guarded CRM views through the gateway.
type WorkspaceHandler struct {
	crm      *crmapi.Resources
	settings SettingsView
}

// NewWorkspaceHandler constructs handler.
func NewWorkspaceHandler(crm *crmapi.Resources, settings SettingsView) *WorkspaceHandler {
	return &WorkspaceHandler{crm: crm, settings: settings}
}

// Dashboard handles GET /dashboard.
func (h *WorkspaceHandler) Dashboard(c *fiber.Ctx) error {
	return passthrough(c, func(ctx context.Context) (*gateway.Response, error) {
		return h.crm.Dashboard.Stats(ctx)
	})
}

// Leads handles GET /leads.
func (h *WorkspaceHandler) Leads(c *fiber.Ctx) error {
	return passthrough(c, func(ctx context.Context) (*gateway.Response, error) {
		return h.crm.Leads.List(ctx, queryOf(c))
	})
}

// Lead handles GET /leads/:id.
func (h *WorkspaceHandler) Lead(c *fiber.Ctx) error {
	return passthrough(c, func(ctx context.Context) (*gateway.Response, error) {
		return h.crm.Leads.Get(ctx, c.Params("id"))
	})
}

// DeleteLead handles DELETE /leads/:id.
func (h *WorkspaceHandler) DeleteLead(c *fiber.Ctx) error {
	return passthrough(c, func(ctx context.Context) (*gateway.Response, error) {
		return h.crm.Leads.Delete(ctx, c.Params("id"))
	})
}

type bulkAssignRequest struct {
	LeadIDs []string `json:"leadIds"`
	UserID  string   `json:"userId"`
}

// BulkAssignLeads handles POST /leads/bulk-assign.
func (h *WorkspaceHandler) BulkAssignLeads(c *fiber.Ctx) error {
	var req bulkAssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload")
	}
	if len(req.LeadIDs) == 0 || req.UserID == "" {
		return apperrors.NewValidationError("leadIds and userId required")
	}
	return passthrough(c, func(ctx context.Context) (*gateway.Response, error) {
		return h.crm.Leads.BulkAssign(ctx, req.LeadIDs, req.UserID)
	})
}

// Tasks handles GET /tasks.
func (h *WorkspaceHandler) Tasks(c *fiber.Ctx) error {
	return passthrough(c, func(ctx context.Context) (*gateway.Response, error) {
		return h.crm.Tasks.List(ctx, queryOf(c))
	})
}

// Task handles GET /tasks/:id.
func (h *WorkspaceHandler) Task(c *fiber.Ctx) error {
	return passthrough(c, func(ctx context.Context) (*gateway.Response, error) {
		return h.crm.Tasks.Get(ctx, c.Params("id"))
	})
}

// Activities handles GET /activities.
func (h *WorkspaceHandler) Activities(c *fiber.Ctx) error {
	return passthrough(c, func(ctx context.Context) (*gateway.Response, error) {
		return h.crm.Activities.List(ctx, queryOf(c))
	})
}

// Users handles GET /users.
func (h *WorkspaceHandler) Users(c *fiber.Ctx) error {
	return passthrough(c, func(ctx context.Context) (*gateway.Response, error) {
		return h.crm.Users.List(ctx, queryOf(c))
	})
}

// User handles GET /users/:id.
func (h *WorkspaceHandler) User(c *fiber.Ctx) error {
	return passthrough(c, func(ctx context.Context) (*gateway.Response, error) {
		return h.crm.Users.Get(ctx, c.Params("id"))
	})
}

// Settings handles GET /settings.
func (h *WorkspaceHandler) Settings(c *fiber.Ctx) error {
	return respond(c, http.StatusOK, h.settings)
}

// passthrough relays the upstream answer as-is. Only failures without a
// response (transport errors, an expired session) go to the error middleware.
func passthrough(c *fiber.Ctx, call func(ctx context.Context) (*gateway.Response, error)) error {
	resp, err := call(c.UserContext())
	if resp == nil {
		if err == nil {
			return apperrors.NewInternalError(nil)
		}
		return err
	}
	c.Status(resp.StatusCode)
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(resp.Body)
}

func queryOf(c *fiber.Ctx) url.Values {
	values := url.Values{}
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		values.Add(string(key), string(value))
	})
	if len(values) == 0 {
		return nil
	}
	return values
}
