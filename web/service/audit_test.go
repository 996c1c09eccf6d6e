package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authpanel/authpanel/database"
	"github.com/authpanel/authpanel/database/model"
	"github.com/authpanel/authpanel/web/console"
)

func setupDB(t *testing.T) {
	t.Helper()
	require.NoError(t, database.InitDB(filepath.Join(t.TempDir(), "test.db")))
	t.Cleanup(func() {
		_ = database.CloseDB()
	})
}

func TestAuditRecorder(t *testing.T) {
	setupDB(t)
	rec := NewAuditRecorder("10.0.0.1")
	ctx := context.Background()

	rec.Record(ctx, console.AuditEvent{Action: console.ActionLogin, Success: true, Detail: "root@example.com"})
	rec.Record(ctx, console.AuditEvent{Action: console.ActionSetAuthorization, ResourceID: "7", Success: false, Detail: "boom"})

	svc := AuditLogService{}
	logs, err := svc.GetAuditLogs(10, "")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "set_authorization", logs[0].Action)
	assert.Equal(t, "7", logs[0].ResourceID)
	assert.False(t, logs[0].Success)
	assert.Equal(t, "10.0.0.1", logs[0].IP)

	logins, err := svc.GetAuditLogs(10, string(console.ActionLogin))
	require.NoError(t, err)
	require.Len(t, logins, 1)
	assert.True(t, logins[0].Success)
}

func TestAuditCleanOldLogs(t *testing.T) {
	setupDB(t)
	db := database.GetDB()
	require.NoError(t, db.Create(&model.AuditLog{Action: "login", CreatedAt: time.Now().AddDate(0, 0, -100)}).Error)
	require.NoError(t, db.Create(&model.AuditLog{Action: "logout", CreatedAt: time.Now()}).Error)

	svc := AuditLogService{}
	require.NoError(t, svc.CleanOldLogs(90))

	logs, err := svc.GetAuditLogs(10, "")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "logout", logs[0].Action)

	assert.Error(t, svc.CleanOldLogs(0))
}

func TestAuditRecorderWithoutDatabase(t *testing.T) {
	require.Nil(t, database.GetDB())
	assert.NotPanics(t, func() {
		NewAuditRecorder("").Record(context.Background(), console.AuditEvent{Action: console.ActionLogout})
	})
}
