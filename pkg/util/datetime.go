package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DateTimeFormat = "2006-01-02 15:04:05"
	ClockFormat    = "3:04 PM"
)

func FormatDateTime(t time.Time) string {
	return t.Format(DateTimeFormat)
}

// TimeStrToSeconds converts a "HH:MM:SS" clock string to seconds since
// midnight. Missing or malformed components count as zero, matching the
// lenient parsing the portal uses for tenant window configuration.
func TimeStrToSeconds(s string) int {
	parts := strings.SplitN(s, ":", 3)
	var h, m, sec int
	if len(parts) > 0 {
		h, _ = strconv.Atoi(strings.TrimSpace(parts[0]))
	}
	if len(parts) > 1 {
		m, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
	}
	if len(parts) > 2 {
		sec, _ = strconv.Atoi(strings.TrimSpace(parts[2]))
	}
	return h*3600 + m*60 + sec
}

// SecondsSinceMidnight returns the wall-clock seconds since midnight for
// the given epoch timestamp in loc.
func SecondsSinceMidnight(epochSeconds int64, loc *time.Location) int {
	t := time.Unix(epochSeconds, 0).In(loc)
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

// PrettyClockTime formats an epoch timestamp as a human clock time in loc,
// e.g. "7:53 AM". Used for the {date_time} template placeholder.
func PrettyClockTime(epochSeconds int64, loc *time.Location) string {
	return time.Unix(epochSeconds, 0).In(loc).Format(ClockFormat)
}

// FormatSecondsOfDay renders seconds-since-midnight back to "HH:MM:SS".
func FormatSecondsOfDay(secs int) string {
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
}
