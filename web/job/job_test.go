package job

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authpanel/authpanel/database"
	"github.com/authpanel/authpanel/database/model"
)

type scriptedPinger struct {
	results []error
	calls   int
}

func (p *scriptedPinger) Ping(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("ping without deadline")
	}
	err := p.results[p.calls]
	p.calls++
	return err
}

func TestCheckAPIHealthJob(t *testing.T) {
	down := errors.New("connection refused")
	pinger := &scriptedPinger{results: []error{nil, down, down, down, nil}}
	j := NewCheckAPIHealthJob(pinger, time.Second)

	j.Run()
	assert.True(t, j.Healthy())

	j.Run()
	assert.True(t, j.Healthy(), "a single failure is tolerated")

	j.Run()
	assert.False(t, j.Healthy())

	j.Run()
	assert.False(t, j.Healthy())

	j.Run()
	assert.True(t, j.Healthy())
	assert.Equal(t, 5, pinger.calls)
}

func TestAuditCleanupJob(t *testing.T) {
	t.Setenv("AUTHPANEL_AUDIT_RETENTION_DAYS", "7")
	require.NoError(t, database.InitDB(filepath.Join(t.TempDir(), "audit.db")))
	t.Cleanup(func() { _ = database.CloseDB() })

	db := database.GetDB()
	require.NoError(t, db.Create(&model.AuditLog{Action: "login", CreatedAt: time.Now().AddDate(0, 0, -8)}).Error)
	require.NoError(t, db.Create(&model.AuditLog{Action: "logout", CreatedAt: time.Now().AddDate(0, 0, -1)}).Error)

	NewAuditCleanupJob().Run()

	var actions []string
	require.NoError(t, db.Model(&model.AuditLog{}).Pluck("action", &actions).Error)
	assert.Equal(t, []string{"logout"}, actions)
}
