package worker

import (
	"github.com/salescrm/crm-portal/internal/service"
)

// StartAuditWorker registers the session audit handlers.
func StartAuditWorker(auditService *service.AuditService) {
	if auditService == nil {
		return
	}
	auditService.RegisterHandlers()
}
