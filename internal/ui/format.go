package ui

import (
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/message"
)

// DateTimeLayout is used for absolute timestamps.
const DateTimeLayout = "2006-01-02 15:04"

// Bytes formats a traffic counter, e.g. "1.5 GiB".
func Bytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// Quota formats a byte limit where zero means unlimited.
func Quota(n int64, p *message.Printer) string {
	if n <= 0 {
		return translate(p, "unlimited")
	}
	return Bytes(n)
}

// Percent formats used/total as a percentage, or "-" for an unlimited total.
func Percent(used, total int64) string {
	if total <= 0 {
		return "-"
	}
	return strconv.FormatFloat(float64(used)*100/float64(total), 'f', 1, 64) + "%"
}

// Expiry formats an optional expiry relative to now.
func Expiry(t *time.Time, now time.Time, p *message.Printer) string {
	if t == nil || t.IsZero() {
		return translate(p, "never")
	}
	return t.Local().Format(DateTimeLayout) + " (" + humanize.RelTime(*t, now, "ago", "from now") + ")"
}

// Timestamp formats an absolute time, or "-" when unset.
func Timestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(DateTimeLayout)
}

// Enabled formats a boolean switch.
func Enabled(b bool, p *message.Printer) string {
	if b {
		return translate(p, "enabled")
	}
	return translate(p, "disabled")
}

// Uptime formats seconds of uptime.
func Uptime(seconds uint64) string {
	d := time.Duration(seconds) * time.Second
	days := int(d.Hours()) / 24
	d -= time.Duration(days) * 24 * time.Hour
	d = d.Truncate(time.Minute)
	if days > 0 {
		return strconv.Itoa(days) + "d " + d.String()
	}
	return d.String()
}

// Count formats a large integer with thousands separators.
func Count(n int64) string {
	return humanize.Comma(n)
}
