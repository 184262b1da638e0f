// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package graph

import (
	"math"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// TimeLayout is the timestamp format the Graph API uses for timestamp and
// end_time fields.
const TimeLayout = "2006-01-02T15:04:05-0700"

// Record is one decoded JSON object. Numbers are json.Number.
type Record map[string]any

// Response is a decoded Graph API body.
type Response struct {
	// Data holds the "data" array of edge responses. Non-object entries are
	// dropped.
	Data []Record

	// Record is the whole top-level object. For node responses this is the
	// node itself.
	Record Record
}

func newResponse(top map[string]any) *Response {
	resp := &Response{Record: Record(top)}
	resp.Data = records(top["data"])
	return resp
}

func records(v any) []Record {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]Record, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, Record(m))
		}
	}
	return out
}

// String returns the string value at key.
func (r Record) String(key string) (string, bool) {
	switch v := r[key].(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	default:
		return "", false
	}
}

// Int returns the count at key. Numeric strings are accepted and fractional
// values are truncated toward zero. Negative, non-finite and out-of-range
// values are reported as absent.
func (r Record) Int(key string) (int64, bool) {
	return toInt(r[key])
}

// Time returns the timestamp at key, in Graph format or RFC 3339.
func (r Record) Time(key string) (time.Time, bool) {
	s, ok := r.String(key)
	if !ok {
		return time.Time{}, false
	}
	return parseTime(s)
}

// Insights returns the embedded "insights":{"data":[...]} list, or nil.
func (r Record) Insights() []Insight {
	wrapper, ok := r["insights"].(map[string]any)
	if !ok {
		return nil
	}
	return InsightsFromRecords(records(wrapper["data"]))
}

// HasInsights reports whether the record carries an embedded insights block.
func (r Record) HasInsights() bool {
	_, ok := r["insights"].(map[string]any)
	return ok
}

// Insight is a named metric with its reported values in response order.
type Insight struct {
	Name   string
	Period string
	Values []InsightValue
}

// InsightValue is one (value, end_time) pair. Value is nil when the API
// reported a non-scalar value (e.g. a breakdown object).
type InsightValue struct {
	Value   *int64
	EndTime *time.Time
}

// First returns the first scalar value of the insight.
func (in Insight) First() (int64, bool) {
	for _, v := range in.Values {
		if v.Value != nil {
			return *v.Value, true
		}
	}
	return 0, false
}

// Last returns the last scalar value of the insight.
func (in Insight) Last() (int64, bool) {
	for i := len(in.Values) - 1; i >= 0; i-- {
		if in.Values[i].Value != nil {
			return *in.Values[i].Value, true
		}
	}
	return 0, false
}

// InsightsFromRecords converts the entries of an insights edge response.
// Entries without a name are skipped.
func InsightsFromRecords(recs []Record) []Insight {
	out := make([]Insight, 0, len(recs))
	for _, rec := range recs {
		name, ok := rec.String("name")
		if !ok || name == "" {
			continue
		}
		in := Insight{Name: name}
		in.Period, _ = rec.String("period")

		for _, vr := range records(rec["values"]) {
			var iv InsightValue
			if n, ok := toInt(vr["value"]); ok {
				iv.Value = &n
			}
			if t, ok := vr.Time("end_time"); ok {
				iv.EndTime = &t
			}
			in.Values = append(in.Values, iv)
		}
		// Some media insights report a bare total_value instead of values.
		if tv, ok := rec["total_value"].(map[string]any); ok {
			if n, ok := toInt(tv["value"]); ok {
				in.Values = append(in.Values, InsightValue{Value: &n})
			}
		}
		out = append(out, in)
	}
	return out
}

func toInt(v any) (int64, bool) {
	var n int64
	switch x := v.(type) {
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			f, ferr := x.Float64()
			if ferr != nil {
				return 0, false
			}
			return floatCount(f)
		}
		n = i
	case float64:
		return floatCount(x)
	case int64:
		n = x
	case int:
		n = int64(x)
	case string:
		i, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return 0, false
		}
		n = i
	default:
		return 0, false
	}
	if n < 0 {
		return 0, false
	}
	return n, true
}

// floatCount truncates f, rejecting values an int64 count cannot hold.
func floatCount(f float64) (int64, bool) {
	if math.IsNaN(f) || f < 0 || f >= 1<<63 {
		return 0, false
	}
	return int64(f), true
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range []string{TimeLayout, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
