package job

import (
	"github.com/authpanel/authpanel/config"
	"github.com/authpanel/authpanel/logger"
	"github.com/authpanel/authpanel/web/service"
)

// AuditCleanupJob removes audit entries past the retention window.
type AuditCleanupJob struct {
	auditService service.AuditLogService
}

func NewAuditCleanupJob() *AuditCleanupJob {
	return &AuditCleanupJob{}
}

func (j *AuditCleanupJob) Run() {
	logger.Debug("Audit cleanup job started")

	retentionDays := config.GetAuditRetentionDays()
	if err := j.auditService.CleanOldLogs(retentionDays); err != nil {
		logger.Warning("Failed to clean old audit logs:", err)
		return
	}
	logger.Debugf("Audit cleanup completed (retention: %d days)", retentionDays)
}
