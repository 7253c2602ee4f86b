// Package smpptime converts between Go's time.Time and the handful of
// fixed-width time encodings SMPP 3.4 uses for schedule_delivery_time and
// validity_period: plain YYMMDDhhmmss(s)? stamps, an absolute stamp with a
// UTC-offset suffix, and a relative duration added to "now" at the SMSC.
package smpptime

import (
	"errors"
	"fmt"
	"time"
)

// Layout identifies which of the four SMPP time encodings a string is in.
type Layout int

const (
	// SimpleSeconds is YYMMDDhhmmss.
	SimpleSeconds Layout = iota
	// SimpleMinutes is YYMMDDhhmm.
	SimpleMinutes
	// Absolute is YYMMDDhhmmsstnn[+-], a wall-clock time plus a 15-minute
	// UTC offset count and sign.
	Absolute
	// Relative is YYMMDDhhmmss000R, a duration added to the current time
	// rather than a point in time.
	Relative
)

// Parse decodes a raw SMPP time field. The layout is inferred from the
// byte length and, for the 16-byte form, from its trailing indicator
// byte ('R' for relative, '+'/'-' for absolute). A zero-length or
// single-byte field means "unset" and comes back as the zero time.
func Parse(in []byte) (time.Time, error) {
	switch len(in) {
	case 0, 1:
		return time.Time{}, nil
	case 10:
		return time.Parse("0601021504", string(in))
	case 12:
		return time.Parse("060102150405", string(in))
	case 14:
		return time.Parse("20060102150405", string(in))
	case 16:
		switch indicator := in[len(in)-1]; indicator {
		case 'R':
			return parseRelative(in), nil
		case '+', '-':
			return parseAbsolute(in, indicator == '-')
		default:
			return time.Time{}, fmt.Errorf("smpptime: invalid layout length %s", in)
		}
	default:
		return time.Time{}, fmt.Errorf("smpptime: invalid layout length %s", in)
	}
}

// parseRelative reads the six two-digit fields of a relative time and
// adds them to the current wall-clock time.
func parseRelative(in []byte) time.Time {
	digits := func(hi, lo byte) int { return int((hi-'0')*10 + (lo - '0')) }
	y := digits(in[0], in[1])
	mo := digits(in[2], in[3])
	d := digits(in[4], in[5])
	h := digits(in[6], in[7])
	mi := digits(in[8], in[9])
	s := digits(in[10], in[11])
	return time.Now().
		AddDate(y, mo, d).
		Add(time.Duration(h)*time.Hour +
			time.Duration(mi)*time.Minute +
			time.Duration(s)*time.Second)
}

// parseAbsolute reads a 16-byte absolute stamp: 12 digits of YYMMDDhhmmss,
// a tenths-of-a-second digit, a two-digit count of 15-minute UTC-offset
// intervals, and the sign negative reports.
func parseAbsolute(in []byte, negative bool) (time.Time, error) {
	intervals := int((in[13]-'0')*10 + (in[14] - '0'))
	offsetSeconds := intervals * 900
	if negative {
		offsetSeconds = -offsetSeconds
	}
	loc := time.UTC
	if offsetSeconds != 0 {
		loc = time.FixedZone("smpptime", offsetSeconds)
	}
	t, err := time.ParseInLocation("060102150405", string(in[:12]), loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.Add(time.Duration(in[12]-'0') * 100 * time.Millisecond), nil
}

// Format encodes t using the given layout. Relative and Absolute are both
// computed against time.Now(), since neither carries a fixed point the
// caller controls.
func Format(layout Layout, t time.Time) (string, error) {
	switch layout {
	case SimpleSeconds:
		return t.Format("060102150405"), nil
	case SimpleMinutes:
		return t.Format("0601021504"), nil
	case Relative:
		return formatRelative(t), nil
	case Absolute:
		return formatAbsolute(t), nil
	default:
		return "", errors.New("smpptime: invalid format layout")
	}
}

func formatRelative(t time.Time) string {
	y, mo, d, h, mi, s := diff(t, time.Now())
	return fmt.Sprintf("%02d%02d%02d%02d%02d%02d000R", y, mo, d, h, mi, s)
}

func formatAbsolute(t time.Time) string {
	sign := "+"
	_, zoneSeconds := t.Zone()
	intervals := zoneSeconds / 900
	if intervals < 0 {
		sign = "-"
		intervals = -intervals
	}
	return fmt.Sprintf("%s%d%02d%s", t.Format("060102150405"), t.Nanosecond()/100000000, intervals, sign)
}

// diff computes the calendar difference between a and b with month/year
// granularity, which time.Sub alone can't give; borrowed technique from
// https://stackoverflow.com/questions/36530251.
func diff(a, b time.Time) (year, month, day, hour, min, sec int) {
	if a.Location() != b.Location() {
		b = b.In(a.Location())
	}
	if a.After(b) {
		a, b = b, a
	}
	y1, M1, d1 := a.Date()
	y2, M2, d2 := b.Date()

	h1, m1, s1 := a.Clock()
	h2, m2, s2 := b.Clock()

	year = y2 - y1
	month = int(M2 - M1)
	day = d2 - d1
	hour = h2 - h1
	min = m2 - m1
	sec = s2 - s1

	if sec < 0 {
		sec += 60
		min--
	}
	if min < 0 {
		min += 60
		hour--
	}
	if hour < 0 {
		hour += 24
		day--
	}
	if day < 0 {
		lastDayOfMonth := time.Date(y1, M1, 32, 0, 0, 0, 0, time.UTC)
		day += 32 - lastDayOfMonth.Day()
		month--
	}
	if month < 0 {
		month += 12
		year--
	}

	return
}
