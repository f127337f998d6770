package exception

import "errors"

var (
	ErrSchedulerHalted  = errors.New("schedule: scheduler halted")
	ErrSchedulerRunning = errors.New("schedule: scheduler already running")
	ErrCallTooHeavy     = errors.New("schedule: call weight exceeds budget capacity")
	ErrInvalidCall      = errors.New("schedule: invalid call")
	ErrNoHandler        = errors.New("schedule: no handler for call kind")
	ErrInvalidBudget    = errors.New("schedule: invalid budget")
)
