// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is shared process-wide. Besides the built-in
// tags it registers:
//   - graphid: a Graph API object id (digits, optionally digits_digits)
//   - datekey: a YYYY-MM-DD account snapshot date
//
// The config package validates its struct tags here, and the api package
// validates path and query parameters before touching the store.
//
//	type postQuery struct {
//	    PostID string `validate:"required,graphid"`
//	}
//
//	if err := validation.ValidateStruct(&q); err != nil {
//	    rw.BadRequest(w, err.ToAPIError().Message)
//	}
package validation
