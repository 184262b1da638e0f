// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package validation

import (
	"strings"
	"testing"
)

type postParams struct {
	PostID string `validate:"required,graphid"`
	Limit  int    `validate:"min=1,max=100"`
}

type kpiParams struct {
	Since string `validate:"omitempty,datekey"`
	Order string `validate:"omitempty,oneof=asc desc"`
}

func TestGetValidator_Singleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() returned different instances")
	}
}

func TestValidateStruct_Valid(t *testing.T) {
	tests := []interface{}{
		&postParams{PostID: "17895695668004550", Limit: 25},
		&postParams{PostID: "17841400000000000_17895695668004550", Limit: 1},
		&kpiParams{},
		&kpiParams{Since: "2024-02-29", Order: "desc"},
	}
	for _, tt := range tests {
		if err := ValidateStruct(tt); err != nil {
			t.Errorf("ValidateStruct(%+v) = %v, want nil", tt, err)
		}
	}
}

func TestValidateStruct_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		wantTag  string
		wantText string
	}{
		{"missing id", &postParams{Limit: 5}, "required", "PostID is required"},
		{"non numeric id", &postParams{PostID: "abc", Limit: 5}, "graphid", "numeric Graph API id"},
		{"limit too large", &postParams{PostID: "1", Limit: 500}, "max", "at most 100"},
		{"bad date", &kpiParams{Since: "2024-13-01"}, "datekey", "YYYY-MM-DD"},
		{"bad order", &kpiParams{Order: "up"}, "oneof", "one of: asc desc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.input)
			if err == nil {
				t.Fatal("expected validation error")
			}
			errs := err.Errors()
			if len(errs) != 1 {
				t.Fatalf("got %d errors, want 1: %v", len(errs), err)
			}
			if errs[0].Tag() != tt.wantTag {
				t.Errorf("Tag() = %q, want %q", errs[0].Tag(), tt.wantTag)
			}
			if !strings.Contains(err.Error(), tt.wantText) {
				t.Errorf("Error() = %q, want it to contain %q", err.Error(), tt.wantText)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	single := ValidateStruct(&postParams{PostID: "x", Limit: 1}).ToAPIError()
	if single.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q", single.Code)
	}
	if single.Details["field"] != "PostID" {
		t.Errorf("Details[field] = %v, want PostID", single.Details["field"])
	}

	multi := ValidateStruct(&postParams{Limit: 0}).ToAPIError()
	fields, ok := multi.Details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 2 {
		t.Fatalf("Details[fields] = %v, want 2 entries", multi.Details["fields"])
	}
	if !strings.Contains(multi.Message, "PostID:") || !strings.Contains(multi.Message, "Limit:") {
		t.Errorf("Message = %q", multi.Message)
	}
}
