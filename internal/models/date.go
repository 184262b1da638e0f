// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package models

import "time"

// DateLayout is the canonical text form of an AccountKpi key.
const DateLayout = "2006-01-02"

// Day returns midnight UTC of the calendar day t falls on in loc.
// A nil loc means UTC.
func Day(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateKey formats a snapshot date as YYYY-MM-DD.
func DateKey(date time.Time) string {
	return date.UTC().Format(DateLayout)
}

// ParseDateKey parses a YYYY-MM-DD key back into a snapshot date.
func ParseDateKey(key string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, key, time.UTC)
}
