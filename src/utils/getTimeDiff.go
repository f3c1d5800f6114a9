package utils

import (
	"fmt"
	"time"
)

// ProviderTimeLayout is the provider's date-string format: UTC, whole seconds, no zone suffix.
const ProviderTimeLayout = "2006-01-02T15:04:05"

// ParseProviderTime parses a strict provider-format date string as UTC.
func ParseProviderTime(value string) (time.Time, error) {
	t, err := time.ParseInLocation(ProviderTimeLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid provider timestamp %q: %w", value, err)
	}
	return t, nil
}

// FormatProviderTime renders t in the provider format, dropping sub-second precision.
func FormatProviderTime(t time.Time) string {
	return t.UTC().Format(ProviderTimeLayout)
}

// ParseSystemTime accepts either an ISO 8601 timestamp with zone or a
// provider-format one (assumed UTC).
func ParseSystemTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return ParseProviderTime(value)
}

// GetTimeDiff returns how long before now the given system time is.
func GetTimeDiff(now time.Time, systemTime string) (time.Duration, error) {
	t, err := ParseSystemTime(systemTime)
	if err != nil {
		return 0, err
	}
	return now.Sub(t), nil
}
