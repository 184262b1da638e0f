// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package logging

import (
	"net/url"
	"strings"
)

// sensitiveParams are query parameters that carry credentials on Graph API
// and token exchange URLs.
var sensitiveParams = []string{
	"access_token",
	"client_secret",
	"fb_exchange_token",
	"appsecret_proof",
}

// SanitizeToken masks a token, keeping only the first and last 4 characters.
// Example: "EAAGm0PX4ZCpsBA...ZDZD" -> "EAAG...ZDZD"
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// SanitizeURL masks credential query parameters so a request URL can be logged.
// Unparseable input is returned fully masked.
func SanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "***"
	}
	q := u.Query()
	changed := false
	for _, p := range sensitiveParams {
		if v := q.Get(p); v != "" {
			q.Set(p, SanitizeToken(v))
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// SanitizeError strips credential values that the standard library embeds in
// *url.Error messages (which quote the full request URL).
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, field := range strings.Fields(msg) {
		trimmed := strings.Trim(field, `"':`)
		if strings.Contains(trimmed, "://") && strings.Contains(trimmed, "?") {
			msg = strings.ReplaceAll(msg, trimmed, SanitizeURL(trimmed))
		}
	}
	return msg
}
