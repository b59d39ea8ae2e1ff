package settlement

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const (
	operationEnroll        = "enroll"
	operationCancel        = "cancel"
	operationScheduleSlot  = "schedule_slot"
	operationConfigureClub = "configure_club"
	operationDeposit       = "deposit"
	operationExpireSlot    = "expire_slot"

	statusOK    = "ok"
	statusError = "error"
)

// OperationLogger receives one record per state-changing engine call.
// The engine itself never logs; errors are always returned to the caller.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes one engine call and its outcome.
type OperationLog struct {
	Operation    string
	UserID       string
	SlotID       string
	ClubID       string
	EnrollmentID string
	OptionSize   int
	Amount       decimal.Decimal
	Points       decimal.Decimal
	Outcome      string // enrollment status, cancellation branch
	Status       string
	Error        error
	Duration     time.Duration
}

func (e *Engine) logOperation(ctx context.Context, started time.Time, entry OperationLog) {
	if e.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = statusError
		} else {
			entry.Status = statusOK
		}
	}
	entry.Duration = time.Since(started)
	e.logger.LogOperation(ctx, entry)
}
