// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package graph

import (
	"fmt"

	"github.com/goccy/go-json"
)

// APIError is a Graph API error object:
//
//	{"error":{"message":"...","type":"OAuthException","code":190,"fbtrace_id":"..."}}
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
	Type       string `json:"type"`
	Code       int    `json:"code"`
	Subcode    int    `json:"error_subcode"`
	FBTraceID  string `json:"fbtrace_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("graph api error %d (%s, code %d): %s", e.StatusCode, e.Type, e.Code, e.Message)
}

// IsAuthError reports whether the token was rejected (expired or revoked).
func (e *APIError) IsAuthError() bool {
	return e.Code == 190 || e.Type == "OAuthException"
}

// parseAPIError decodes a Graph error body, returning nil if body is not one.
func parseAPIError(status int, body []byte) *APIError {
	var wrapper struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil || wrapper.Error == nil {
		return nil
	}
	wrapper.Error.StatusCode = status
	return wrapper.Error
}
