package service

import (
	"errors"
	"fmt"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/db"
)

var (
	ErrNotFound             = db.ErrNotFound
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrInvalidInput         = errors.New("invalid input")
	ErrAmountMismatch       = errors.New("payment amount does not match amount due")
	ErrFinalPaymentRequired = errors.New("final payment must be confirmed before completing an on-site job")
	ErrWorkNotAuthorized    = errors.New("work is not authorized on this ticket")
	ErrAlreadyDone          = errors.New("already done")
	ErrInProgress           = errors.New("confirmation already in progress")
)

// transitionError reports a rejected lifecycle action for the ticket's current status.
func transitionError(action, status string) error {
	return fmt.Errorf("%w: cannot %s a ticket in status %s", ErrInvalidTransition, action, status)
}
