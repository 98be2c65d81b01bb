package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ggoomipapa/fammoney-core/internal/model"
)

// Validation errors.
var (
	ErrNilContext    = errors.New("context cannot be nil")
	ErrEmptyString   = errors.New("string parameter cannot be empty")
	ErrNilParameter  = errors.New("parameter cannot be nil")
	ErrInvalidRecord = errors.New("invalid record")
	ErrInvalidWindow = errors.New("invalid recent window")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTransactionRecord validates a transaction before persistence.
func validateTransactionRecord(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.ID == "" {
		return fmt.Errorf("%w: transaction missing ID", ErrInvalidRecord)
	}
	if txn.Scope == "" {
		return fmt.Errorf("%w: transaction missing scope", ErrInvalidRecord)
	}
	if txn.SourceApp == "" {
		return fmt.Errorf("%w: transaction missing source app", ErrInvalidRecord)
	}
	if txn.NotificationTime.IsZero() {
		return fmt.Errorf("%w: transaction missing notification time", ErrInvalidRecord)
	}
	if txn.Amount < 0 {
		return fmt.Errorf("%w: transaction amount is negative", ErrInvalidRecord)
	}
	return nil
}

// validatePendingDuplicate validates a pending duplicate before persistence.
func validatePendingDuplicate(pending *model.PendingDuplicate) error {
	if pending == nil {
		return fmt.Errorf("%w: pending duplicate", ErrNilParameter)
	}
	if pending.ID == "" {
		return fmt.Errorf("%w: pending duplicate missing ID", ErrInvalidRecord)
	}
	if pending.Transaction1ID == "" || pending.Transaction2ID == "" {
		return fmt.Errorf("%w: pending duplicate missing transaction reference", ErrInvalidRecord)
	}
	if pending.Transaction1ID == pending.Transaction2ID {
		return fmt.Errorf("%w: pending duplicate links a transaction to itself", ErrInvalidRecord)
	}
	return nil
}

// validateResolutionRule validates a standing rule before persistence.
func validateResolutionRule(rule *model.ResolutionRule) error {
	if rule == nil {
		return fmt.Errorf("%w: resolution rule", ErrNilParameter)
	}
	if rule.PairKey == "" {
		return fmt.Errorf("%w: resolution rule missing pair key", ErrInvalidRecord)
	}
	if !model.ValidResolution(rule.Resolution) {
		return fmt.Errorf("%w: unknown resolution %q", ErrInvalidRecord, rule.Resolution)
	}
	return nil
}
