package util

import (
	"fmt"
	"strconv"
	"time"
)

// ParseTimeFlexible accepts ISO 8601 timestamps (with or without
// sub-second precision), a plain date-time form, and epoch milliseconds.
// Results are normalized to UTC.
func ParseTimeFlexible(timeStr string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, timeStr); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, timeStr); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02 15:04:05", timeStr); err == nil {
		return t.UTC(), nil
	}

	if ms, err := strconv.ParseInt(timeStr, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}

	return time.Time{}, fmt.Errorf("invalid time format: %s", timeStr)
}
