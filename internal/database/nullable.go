// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package database

import (
	"database/sql"
	"time"
)

// argInt converts an optional metric into a driver argument (NULL when unobserved).
func argInt(p *int64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func argString(p *string) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func argTime(p *time.Time) interface{} {
	if p == nil {
		return nil
	}
	return p.UTC()
}

func intPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func stringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}

func timePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	v := n.Time.UTC()
	return &v
}
