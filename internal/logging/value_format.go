package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

const epochLayout = "2006-01-02T15:04:05.000Z07:00"

// EpochSeconds is a ledger timestamp in float seconds since the Unix epoch.
// The console handler renders it as a UTC time with millisecond precision;
// the JSON handler keeps the raw number so it matches the ledger row.
type EpochSeconds float64

// DurationSeconds is a span in float seconds, such as a session's worktime.
type DurationSeconds float64

func formatEpochSeconds(v EpochSeconds) string {
	if v <= 0 {
		return "-"
	}
	nanos := int64(float64(v) * float64(time.Second))
	return time.Unix(0, nanos).UTC().Format(epochLayout)
}

func formatDurationSeconds(v DurationSeconds) string {
	return time.Duration(float64(v) * float64(time.Second)).Round(time.Millisecond).String()
}

func attrString(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return formatValue(v)
	}
}

func formatValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if needsQuotes(s) {
			return strconv.Quote(s)
		}
		return s
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindAny:
		switch x := v.Any().(type) {
		case EpochSeconds:
			return formatEpochSeconds(x)
		case DurationSeconds:
			return formatDurationSeconds(x)
		}
		if err, ok := v.Any().(error); ok {
			msg := err.Error()
			if needsQuotes(msg) {
				return strconv.Quote(msg)
			}
			return msg
		}
		s := fmt.Sprint(v.Any())
		if needsQuotes(s) {
			return strconv.Quote(s)
		}
		return s
	default:
		s := v.String()
		if needsQuotes(s) {
			return strconv.Quote(s)
		}
		return s
	}
}

func needsQuotes(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return true
		}
	}
	return false
}
