// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestCycleIDContext(t *testing.T) {
	ctx := context.Background()
	if CycleIDFromContext(ctx) != "" {
		t.Error("empty context returned a cycle id")
	}

	ctx = ContextWithNewCycleID(ctx)
	id := CycleIDFromContext(ctx)
	if len(id) != 8 {
		t.Errorf("cycle id %q, want 8 characters", id)
	}
}

func TestCtx_AddsFields(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), NewTestLogger(&buf))
	ctx = ContextWithCycleID(ctx, "abcd1234")
	ctx = ContextWithRequestID(ctx, "req-1")

	Ctx(ctx).Info().Msg("x")

	out := buf.String()
	if !strings.Contains(out, `"cycle_id":"abcd1234"`) {
		t.Errorf("missing cycle_id: %s", out)
	}
	if !strings.Contains(out, `"request_id":"req-1"`) {
		t.Errorf("missing request_id: %s", out)
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	t.Cleanup(func() { Init(DefaultConfig()) })

	l := WithComponent("reconcile")
	l.Info().Msg("y")
	if !strings.Contains(buf.String(), `"component":"reconcile"`) {
		t.Errorf("missing component: %s", buf.String())
	}
}
