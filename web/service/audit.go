package service

import (
	"context"
	"fmt"
	"time"

	"github.com/authpanel/authpanel/database"
	"github.com/authpanel/authpanel/database/model"
	"github.com/authpanel/authpanel/logger"
	"github.com/authpanel/authpanel/web/console"
)

// AuditLogService persists console actions in the audit_logs table.
type AuditLogService struct{}

// LogAction stores one audit entry.
func (s *AuditLogService) LogAction(action, resourceID string, success bool, detail, ip string) error {
	db := database.GetDB()
	if db == nil {
		return fmt.Errorf("audit log: database not initialized")
	}

	entry := model.AuditLog{
		Action:     action,
		ResourceID: resourceID,
		Success:    success,
		Detail:     detail,
		IP:         ip,
		CreatedAt:  time.Now(),
	}
	if err := db.Create(&entry).Error; err != nil {
		logger.Warningf("Failed to create audit log: action=%s, resource=%s, error=%v", action, resourceID, err)
		return err
	}
	return nil
}

// GetAuditLogs returns the newest entries first, optionally filtered by action.
func (s *AuditLogService) GetAuditLogs(limit int, action string) ([]model.AuditLog, error) {
	db := database.GetDB()
	if db == nil {
		return nil, fmt.Errorf("audit log: database not initialized")
	}

	query := db.Model(&model.AuditLog{})
	if action != "" {
		query = query.Where("action = ?", action)
	}
	if limit <= 0 {
		limit = 50
	}

	var logs []model.AuditLog
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// CleanOldLogs removes audit logs older than days.
func (s *AuditLogService) CleanOldLogs(days int) error {
	if days <= 0 {
		return fmt.Errorf("days must be greater than 0")
	}
	db := database.GetDB()
	if db == nil {
		return fmt.Errorf("audit log: database not initialized")
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	result := db.Where("created_at < ?", cutoff).Delete(&model.AuditLog{})
	if result.Error != nil {
		return result.Error
	}

	logger.Infof("Cleaned %d old audit logs (older than %d days)", result.RowsAffected, days)
	return nil
}

// AuditRecorder feeds console events of one client into the audit log.
type AuditRecorder struct {
	service AuditLogService
	ip      string
}

var _ console.Recorder = (*AuditRecorder)(nil)

func NewAuditRecorder(ip string) *AuditRecorder {
	return &AuditRecorder{ip: ip}
}

func (r *AuditRecorder) Record(_ context.Context, event console.AuditEvent) {
	if database.GetDB() == nil {
		return
	}
	if err := r.service.LogAction(string(event.Action), event.ResourceID.String(), event.Success, event.Detail, r.ip); err != nil {
		logger.Warning("Failed to log audit action:", err)
	}
}
