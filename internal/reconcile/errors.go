// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package reconcile

import (
	"errors"
	"fmt"
)

// Failure kinds. Compare with errors.Is.
var (
	// ErrTransport marks a failed or malformed Graph API call.
	ErrTransport = errors.New("transport failure")

	// ErrPersistence marks a rejected store read or write.
	ErrPersistence = errors.New("persistence failure")

	// ErrPanic marks a category that panicked and was recovered.
	ErrPanic = errors.New("category panicked")
)

// Metric error_type labels.
const (
	errorTypeTransport   = "transport"
	errorTypePersistence = "persistence"
	errorTypePanic       = "panic"
)

func transportErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
}

func persistenceErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

// errorType classifies err for the error_type label. Unclassified errors
// count as transport failures.
func errorType(err error) string {
	switch {
	case errors.Is(err, ErrPanic):
		return errorTypePanic
	case errors.Is(err, ErrPersistence):
		return errorTypePersistence
	default:
		return errorTypeTransport
	}
}

var errMissingID = errors.New("record has no id")
