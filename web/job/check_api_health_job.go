// Package job holds the cron jobs run by the web server.
package job

import (
	"context"
	"time"

	"github.com/authpanel/authpanel/logger"
	"github.com/authpanel/authpanel/util/common"

	"go.uber.org/atomic"
)

// Pinger is the part of the admin API client the health job needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckAPIHealthJob pings the admin API and reports when it stops answering.
type CheckAPIHealthJob struct {
	api     Pinger
	timeout time.Duration

	failures int
	down     atomic.Bool
}

func NewCheckAPIHealthJob(api Pinger, timeout time.Duration) *CheckAPIHealthJob {
	return &CheckAPIHealthJob{api: api, timeout: timeout}
}

func (j *CheckAPIHealthJob) Run() {
	defer common.Recover("api health job")

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	err := j.api.Ping(ctx)
	if err == nil {
		if j.down.Swap(false) {
			logger.Info("Admin API is reachable again")
		}
		j.failures = 0
		return
	}

	j.failures++
	logger.Debug("Admin API ping failed:", err)
	// only warn if it's down 2 times in a row
	if j.failures > 1 && !j.down.Swap(true) {
		logger.Warning("Admin API is unreachable:", err)
	}
}

// Healthy reports the last known state of the admin API.
func (j *CheckAPIHealthJob) Healthy() bool {
	return !j.down.Load()
}
