// Package campaign implements the dunning ladder: the stage transition
// table, record resolution, the engine that advances opportunities stage
// by stage, and the workflows built on it (notice rounds, hold release,
// letter generation).
package campaign

import (
	"strings"
	"time"
)

// dateLayouts are tried in order against every raw date value; the first
// layout that parses wins for that value. Non-padded layouts accept both
// "3/1/2024" and "03/01/2024".
var dateLayouts = []string{
	"1/2/2006",
	"2006-1-2",
	"1-2-2006",
	"2/1/2006",
}

// todayLayout is how dates are written back: zero-padded month/day/year.
const todayLayout = "01/02/2006"

// isoLayout is the CRM's own date rendering on some fields.
const isoLayout = "2006-01-02"

// Today renders the clock's date the way every date field stores it.
func Today(now time.Time) string {
	return now.Format(todayLayout)
}

// ParseFlexible parses a raw date using the layout priority list.
func ParseFlexible(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Dated pairs a record id with the raw date string it is ranked by.
type Dated struct {
	ID  string
	Raw string
}

// Oldest returns the id of the candidate with the earliest parseable
// date. Candidates whose date parses under no layout are excluded rather
// than treated as epoch. Ties keep the first candidate seen. ok is false
// when nothing parseable remains.
func Oldest(candidates []Dated) (string, bool) {
	var (
		bestID string
		best   time.Time
		found  bool
	)
	for _, c := range candidates {
		t, ok := ParseFlexible(c.Raw)
		if !ok {
			continue
		}
		if !found || t.Before(best) {
			bestID, best, found = c.ID, t, true
		}
	}
	return bestID, found
}

// mailerDateSep joins the dates a mail piece went out, oldest first.
// Historical values sometimes carry a space after the comma, so reads
// trim each component.
const mailerDateSep = ","

// SplitMailerDates breaks a stored mailer-date list into its components.
// Components beyond what a stage consumes survive a rewrite untouched
// because rewrites only ever append.
func SplitMailerDates(list string) []string {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	parts := strings.Split(list, mailerDateSep)
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// AppendMailerDate adds today to a mailer-date list, starting the list
// when it is empty.
func AppendMailerDate(list, today string) string {
	if strings.TrimSpace(list) == "" {
		return today
	}
	return list + mailerDateSep + today
}

// FromISO rewrites an ISO date (2024-05-01) into the padded slash form.
// Anything that is not an ISO date passes through unchanged.
func FromISO(raw string) string {
	t, err := time.Parse(isoLayout, raw)
	if err != nil {
		return raw
	}
	return t.Format(todayLayout)
}

// PreviousMonthRange returns the first instant of the previous month and
// the first instant of the current month, in the clock's location.
func PreviousMonthRange(now time.Time) (time.Time, time.Time) {
	end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	start := end.AddDate(0, -1, 0)
	return start, end
}
