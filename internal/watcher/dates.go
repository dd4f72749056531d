package watcher

import "time"

// DateLayout is the key format for version and change records.
const DateLayout = "2006-01-02"

// DateKey formats t as a UTC calendar date.
func DateKey(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// Today returns the UTC date key for the clock's current time.
func Today(c Clock) string {
	return DateKey(c.Now())
}

// Yesterday returns the UTC date key for the day before the clock's current time.
func Yesterday(c Clock) string {
	return DateKey(c.Now().UTC().AddDate(0, 0, -1))
}
