package service

import (
	"fmt"
	"time"
)

type Timeframe string

const (
	Timeframe30Days  Timeframe = "30d"
	Timeframe90Days  Timeframe = "90d"
	TimeframeOneYear Timeframe = "1y"
	TimeframeAll     Timeframe = "all"
)

// DefaultTimeframe is used when a request names none.
const DefaultTimeframe = Timeframe30Days

// epochFloor is the start of the all-time window.
var epochFloor = time.Unix(0, 0).UTC()

// AllTimeframes lists every supported window, shortest first.
func AllTimeframes() []Timeframe {
	return []Timeframe{Timeframe30Days, Timeframe90Days, TimeframeOneYear, TimeframeAll}
}

func ParseTimeframe(raw string) (Timeframe, error) {
	if raw == "" {
		return DefaultTimeframe, nil
	}
	tf := Timeframe(raw)
	switch tf {
	case Timeframe30Days, Timeframe90Days, TimeframeOneYear, TimeframeAll:
		return tf, nil
	}
	return "", fmt.Errorf("unknown timeframe %q", raw)
}

// ResolveWindow returns the half-open range [start, end) ending at now.
func ResolveWindow(tf Timeframe, now time.Time) (start, end time.Time) {
	end = now.UTC()
	switch tf {
	case Timeframe90Days:
		start = end.AddDate(0, 0, -90)
	case TimeframeOneYear:
		start = end.AddDate(-1, 0, 0)
	case TimeframeAll:
		start = epochFloor
	default:
		start = end.AddDate(0, 0, -30)
	}
	return start, end
}
