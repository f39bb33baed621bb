// Package service implements the economy rules: the action resolver,
// farming, cooking, the market, challenges, pets, properties, the shop and
// account banking. Every mutating operation runs through Engine.mutate, which
// serializes per account and commits all-or-nothing.
package service

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors. Every rejected command wraps exactly one of these.
var (
	ErrCooldownActive       = errors.New("cooldown active")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientResource = errors.New("insufficient resource")
	ErrMissingTool          = errors.New("missing tool")
	ErrMissingPrerequisite  = errors.New("missing prerequisite")
	ErrInvalidTarget        = errors.New("invalid target")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrAlreadyClaimed       = errors.New("already claimed")
	ErrCapacityExceeded     = errors.New("capacity exceeded")
)

var domainErrors = []error{
	ErrCooldownActive,
	ErrInsufficientFunds,
	ErrInsufficientResource,
	ErrMissingTool,
	ErrMissingPrerequisite,
	ErrInvalidTarget,
	ErrInvalidAmount,
	ErrAlreadyClaimed,
	ErrCapacityExceeded,
}

// ActionError is a rejected command with the user-facing reason.
type ActionError struct {
	Kind       error
	Message    string
	RetryAfter time.Duration
	Required   int64
	Available  int64
}

func (e *ActionError) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *ActionError) Unwrap() error {
	return e.Kind
}

// IsDomainError reports whether err is a rejection rather than a failure.
func IsDomainError(err error) bool {
	for _, k := range domainErrors {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}

func reject(kind error, format string, args ...any) *ActionError {
	return &ActionError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func cooldownError(left time.Duration) *ActionError {
	return &ActionError{
		Kind:       ErrCooldownActive,
		Message:    fmt.Sprintf("⏳ Aguarde %s para repetir.", formatDuration(left)),
		RetryAfter: left,
	}
}

func fundsError(required, available int64) *ActionError {
	return &ActionError{
		Kind:      ErrInsufficientFunds,
		Message:   fmt.Sprintf("💸 Você precisa de %s, mas tem %s.", coins(required), coins(available)),
		Required:  required,
		Available: available,
	}
}

func resourceError(key string, required, available int64) *ActionError {
	return &ActionError{
		Kind:      ErrInsufficientResource,
		Message:   fmt.Sprintf("📦 Você precisa de %dx %s, mas tem %d.", required, key, available),
		Required:  required,
		Available: available,
	}
}
