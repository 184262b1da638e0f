// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package graph

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func decode(t *testing.T, body string) *Response {
	t.Helper()
	resp, err := decodeResponse(strings.NewReader(body), defaultMaxResponseSize)
	if err != nil {
		t.Fatalf("decodeResponse: %v", err)
	}
	return resp
}

func TestRecord_Accessors(t *testing.T) {
	resp := decode(t, `{"id":"17895695668004550","like_count":7,"caption":"hi","timestamp":"2024-03-05T18:30:00+0000","ratio":1.9,"count_str":"42"}`)
	r := resp.Record

	if s, ok := r.String("id"); !ok || s != "17895695668004550" {
		t.Errorf("String(id) = %q, %v", s, ok)
	}
	if n, ok := r.Int("like_count"); !ok || n != 7 {
		t.Errorf("Int(like_count) = %d, %v", n, ok)
	}
	if n, ok := r.Int("ratio"); !ok || n != 1 {
		t.Errorf("Int(ratio) = %d, %v, want truncated 1", n, ok)
	}
	if n, ok := r.Int("count_str"); !ok || n != 42 {
		t.Errorf("Int(count_str) = %d, %v", n, ok)
	}
	if _, ok := r.Int("caption"); ok {
		t.Error("Int(caption) reported ok for a non-numeric string")
	}
	if _, ok := r.Int("missing"); ok {
		t.Error("Int(missing) reported ok")
	}

	ts, ok := r.Time("timestamp")
	want := time.Date(2024, 3, 5, 18, 30, 0, 0, time.UTC)
	if !ok || !ts.Equal(want) {
		t.Errorf("Time(timestamp) = %v, %v, want %v", ts, ok, want)
	}
}

func TestRecord_EmbeddedInsights(t *testing.T) {
	resp := decode(t, `{"data":[{"id":"1","insights":{"data":[
		{"name":"reach","period":"lifetime","values":[{"value":100}]},
		{"name":"impressions","values":[{"value":250}]},
		{"name":"saved","values":[{"value":{"breakdown":1}}]},
		{"values":[{"value":5}]}
	]}},{"id":"2"}]}`)

	if len(resp.Data) != 2 {
		t.Fatalf("len(Data) = %d", len(resp.Data))
	}
	first := resp.Data[0]
	if !first.HasInsights() {
		t.Fatal("HasInsights() = false")
	}
	ins := first.Insights()
	if len(ins) != 3 {
		t.Fatalf("len(Insights) = %d, want 3 (nameless entry skipped)", len(ins))
	}
	if ins[0].Name != "reach" || ins[0].Period != "lifetime" {
		t.Errorf("ins[0] = %+v", ins[0])
	}
	if v, ok := ins[0].First(); !ok || v != 100 {
		t.Errorf("reach = %d, %v", v, ok)
	}
	if _, ok := ins[2].First(); ok {
		t.Error("non-scalar value reported as scalar")
	}

	if resp.Data[1].HasInsights() || resp.Data[1].Insights() != nil {
		t.Error("record without insights reported insights")
	}
}

func TestToInt(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		want   int64
		wantOK bool
	}{
		{"zero", json.Number("0"), 0, true},
		{"max int64", json.Number("9223372036854775807"), math.MaxInt64, true},
		{"fraction truncated", json.Number("12.9"), 12, true},
		{"negative", json.Number("-5"), 0, false},
		{"negative fraction", json.Number("-1.5"), 0, false},
		{"beyond int64", json.Number("9223372036854775808"), 0, false},
		{"huge exponent", json.Number("1e30"), 0, false},
		{"nan number", json.Number("NaN"), 0, false},
		{"float nan", math.NaN(), 0, false},
		{"float inf", math.Inf(1), 0, false},
		{"float negative inf", math.Inf(-1), 0, false},
		{"float 2^63", float64(1 << 63), 0, false},
		{"float ok", 3.0, 3, true},
		{"int64 negative", int64(-1), 0, false},
		{"int negative", -7, 0, false},
		{"string negative", "-3", 0, false},
		{"string ok", "42", 42, true},
		{"bool", true, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := toInt(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("toInt(%v) = %d, %v, want %d, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestRecord_IntRejectsImpossibleCounts(t *testing.T) {
	resp := decode(t, `{"like_count":-3,"followers_count":1e300,"comments_count":4}`)
	if n, ok := resp.Record.Int("like_count"); ok {
		t.Errorf("Int(like_count) = %d, want absent", n)
	}
	if n, ok := resp.Record.Int("followers_count"); ok {
		t.Errorf("Int(followers_count) = %d, want absent", n)
	}
	if n, ok := resp.Record.Int("comments_count"); !ok || n != 4 {
		t.Errorf("Int(comments_count) = %d, %v, want 4", n, ok)
	}
}

func TestInsightsFromRecords_DailySeries(t *testing.T) {
	resp := decode(t, `{"data":[{"name":"reach","period":"day","values":[
		{"value":10,"end_time":"2024-01-01T08:00:00+0000"},
		{"value":20,"end_time":"2024-01-02T08:00:00+0000"}
	]}]}`)

	ins := InsightsFromRecords(resp.Data)
	if len(ins) != 1 || len(ins[0].Values) != 2 {
		t.Fatalf("unexpected insights: %+v", ins)
	}
	v := ins[0].Values[1]
	if v.Value == nil || *v.Value != 20 {
		t.Errorf("second value = %v", v.Value)
	}
	if v.EndTime == nil || v.EndTime.Day() != 2 {
		t.Errorf("second end_time = %v", v.EndTime)
	}
	if last, ok := ins[0].Last(); !ok || last != 20 {
		t.Errorf("Last() = %d, %v", last, ok)
	}
}

func TestInsightsFromRecords_TotalValue(t *testing.T) {
	resp := decode(t, `{"data":[{"name":"views","total_value":{"value":77}}]}`)
	ins := InsightsFromRecords(resp.Data)
	if v, ok := ins[0].First(); !ok || v != 77 {
		t.Errorf("First() = %d, %v, want 77", v, ok)
	}
}

func TestDecodeResponse_Empty(t *testing.T) {
	resp := decode(t, "  ")
	if resp.Data != nil || len(resp.Record) != 0 {
		t.Errorf("empty body decoded to %+v", resp)
	}
}

func TestDecodeResponse_SizeLimit(t *testing.T) {
	body := `{"id":"1"}`
	if _, err := decodeResponse(strings.NewReader(body), int64(len(body))); err != nil {
		t.Errorf("body at the limit: %v", err)
	}
	_, err := decodeResponse(strings.NewReader(body), int64(len(body))-1)
	if !errors.Is(err, ErrResponseTooLarge) {
		t.Errorf("err = %v, want ErrResponseTooLarge", err)
	}
}
