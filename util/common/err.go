// Package common holds small error helpers shared by the server and the jobs.
package common

import (
	"errors"

	"github.com/authpanel/authpanel/logger"
)

// Combine joins the non-nil errors; nil when all are nil.
func Combine(errs ...error) error {
	return errors.Join(errs...)
}

// Recover must be deferred directly. It logs a panic under msg and returns it.
func Recover(msg string) any {
	panicErr := recover()
	if panicErr != nil {
		if msg != "" {
			logger.Error(msg, "panic:", panicErr)
		}
	}
	return panicErr
}
