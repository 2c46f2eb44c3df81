package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ServiceTime is a time of day on a logical service day, formatted as
// a zero-padded "HH:MM:SS" string. Hours may exceed 24 to represent
// post-midnight service belonging to the prior service day: a trip
// departing at 25:15:00 runs at 01:15 the next morning but sorts
// after the same day's evening trips. Because values are zero padded,
// plain string comparison is the correct ordering; ServiceTimes must
// never be reduced to modulo-24 wall-clock times.
type ServiceTime string

// ParseServiceTime normalizes a feed time like "8:05:00" or
// "25:15:00" into zero-padded form.
func ParseServiceTime(s string) (ServiceTime, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return "", fmt.Errorf("found %d parts in %q", len(parts), s)
	}

	hms := [3]int{}
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return "", fmt.Errorf("non-integer in %q pos %d", s, i)
		}
		hms[i] = n
	}

	if hms[0] < 0 || hms[0] > 99 {
		return "", fmt.Errorf("invalid hour in %q", s)
	}
	if hms[1] < 0 || hms[1] > 59 {
		return "", fmt.Errorf("invalid minute in %q", s)
	}
	if hms[2] < 0 || hms[2] > 59 {
		return "", fmt.Errorf("invalid second in %q", s)
	}

	return ServiceTime(fmt.Sprintf("%02d:%02d:%02d", hms[0], hms[1], hms[2])), nil
}

// Seconds returns the offset from the start of the service day. May
// exceed 24 hours.
func (t ServiceTime) Seconds() int {
	h, _ := strconv.Atoi(string(t[0:2]))
	m, _ := strconv.Atoi(string(t[3:5]))
	s, _ := strconv.Atoi(string(t[6:8]))
	return h*3600 + m*60 + s
}

func (t ServiceTime) Duration() time.Duration {
	return time.Duration(t.Seconds()) * time.Second
}

// Before reports whether t sorts ahead of u within a service day.
func (t ServiceTime) Before(u ServiceTime) bool {
	return t < u
}

func (t ServiceTime) String() string {
	return string(t)
}
