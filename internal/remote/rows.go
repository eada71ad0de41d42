package remote

import (
	"encoding/json"
	"strconv"
	"time"
)

// Row decode helpers. Remote rows arrive as generic JSON, so values show up
// as string/float64/[]any depending on the column type; these coerce them
// into the shapes the models expect, defaulting to zero values on mismatch.

func rowString(row Row, col string) string {
	if v, ok := row[col]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func rowFloat(row Row, col string) float64 {
	switch v := row[col].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	}
	return 0
}

func rowStrings(row Row, col string) []string {
	switch v := row[col].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func rowTime(row Row, col string) time.Time {
	s := rowString(row, col)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
