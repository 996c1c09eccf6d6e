// Package model contains the persisted records of authpanel.
package model

import "time"

// AuditLog is one console action: a login attempt, logout, session expiry or
// authorization change.
type AuditLog struct {
	Id         int       `json:"id" gorm:"primaryKey;autoIncrement"`
	Action     string    `json:"action" gorm:"index;not null"`
	ResourceID string    `json:"resourceId" gorm:"column:resource_id;index"`
	Success    bool      `json:"success"`
	Detail     string    `json:"detail"`
	IP         string    `json:"ip"`
	CreatedAt  time.Time `json:"createdAt" gorm:"index"`
}
