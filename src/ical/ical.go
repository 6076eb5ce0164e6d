// Package ical decodes external booking calendars and derives guest details
// from their free-text fields. Parsing is deliberately tolerant: feeds from
// booking platforms are frequently malformed and an unparseable event must
// never abort a sync.
package ical

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"smartcheckin/src/types"
)

// PlaceholderGuestName is used when a feed event carries no usable guest
// name. Events resolving to it are treated as availability blocks and never
// materialize reservations.
const PlaceholderGuestName = "Guest"

type Event struct {
	UID         string
	Summary     string
	Description string
	StartDate   time.Time
	EndDate     time.Time
	Source      types.Channel
}

// sourceRules maps feed-URL host substrings to booking channels. New
// channels are added here without touching call sites.
var sourceRules = []struct {
	Substring string
	Channel   types.Channel
}{
	{"airbnb.com", types.CHANNEL_AIRBNB},
	{"abnb.me", types.CHANNEL_AIRBNB},
	{"admin.booking.com", types.CHANNEL_BOOKING},
	{"booking.com", types.CHANNEL_BOOKING},
}

// DetectSource classifies a feed URL into a known booking channel, falling
// back to CHANNEL_OTHER.
func DetectSource(url string) types.Channel {
	lower := strings.ToLower(url)
	for _, rule := range sourceRules {
		if strings.Contains(lower, rule.Substring) {
			return rule.Channel
		}
	}
	return types.CHANNEL_OTHER
}

// Parse decodes an iCal document into events. Logical lines are unfolded
// before field parsing, property parameters are honored for date fields, and
// escaped text sequences are restored. An event block lacking uid, start or
// end is dropped silently.
func Parse(content string, feedURL string) []Event {
	source := types.CHANNEL_OTHER
	if feedURL != "" {
		source = DetectSource(feedURL)
	}

	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	var events []Event
	var current *Event
	inEvent := false

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		// Folded lines start with a single space or tab and continue the
		// previous logical line.
		for i+1 < len(lines) && (strings.HasPrefix(lines[i+1], " ") || strings.HasPrefix(lines[i+1], "\t")) {
			i++
			line += lines[i][1:]
		}

		switch {
		case strings.HasPrefix(line, "BEGIN:VEVENT"):
			inEvent = true
			current = &Event{Source: source}
		case strings.HasPrefix(line, "END:VEVENT"):
			if current != nil && current.UID != "" && !current.StartDate.IsZero() && !current.EndDate.IsZero() {
				events = append(events, *current)
			}
			inEvent = false
			current = nil
		case inEvent && current != nil:
			colon := strings.Index(line, ":")
			if colon <= 0 {
				continue
			}
			key := line[:colon]
			value := line[colon+1:]
			keyBase := key
			if semi := strings.Index(key, ";"); semi >= 0 {
				keyBase = key[:semi]
			}
			switch keyBase {
			case "UID":
				current.UID = value
			case "SUMMARY":
				current.Summary = unescapeText(value)
			case "DESCRIPTION":
				current.Description = unescapeText(value)
			case "DTSTART":
				current.StartDate = parseDate(value, key)
			case "DTEND":
				current.EndDate = parseDate(value, key)
			}
		}
	}

	return events
}

// parseDate handles both whole-day (YYYYMMDD, local midnight) and date-time
// values (UTC when suffixed Z, local otherwise). A zero time is returned for
// unparseable values, which causes the enclosing event to be dropped.
func parseDate(value string, key string) time.Time {
	isDateOnly := strings.Contains(key, "VALUE=DATE") && !strings.Contains(key, "VALUE=DATE-TIME")

	if isDateOnly || len(value) == 8 {
		year, ok1 := field(value, 0, 4)
		month, ok2 := field(value, 4, 6)
		day, ok3 := field(value, 6, 8)
		if !ok1 || !ok2 || !ok3 {
			return time.Time{}
		}
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
	}

	year, ok1 := field(value, 0, 4)
	month, ok2 := field(value, 4, 6)
	day, ok3 := field(value, 6, 8)
	if !ok1 || !ok2 || !ok3 {
		return time.Time{}
	}
	hour, _ := field(value, 9, 11)
	minute, _ := field(value, 11, 13)
	second, _ := field(value, 13, 15)

	if strings.HasSuffix(value, "Z") {
		return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	}
	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.Local)
}

func field(value string, from, to int) (int, bool) {
	if len(value) < to {
		return 0, false
	}
	n, err := strconv.Atoi(value[from:to])
	if err != nil {
		return 0, false
	}
	return n, true
}

func unescapeText(text string) string {
	text = strings.ReplaceAll(text, `\n`, "\n")
	text = strings.ReplaceAll(text, `\,`, ",")
	text = strings.ReplaceAll(text, `\;`, ";")
	text = strings.ReplaceAll(text, `\\`, `\`)
	return text
}

// FilterActive keeps only events that have not yet ended: ongoing and
// future stays. Past events are ignored by reconciliation.
func FilterActive(events []Event, now time.Time) []Event {
	var active []Event
	for _, e := range events {
		if !e.EndDate.Before(now) {
			active = append(active, e)
		}
	}
	return active
}

var (
	suffixRe      = regexp.MustCompile(`(?i)\s*-\s*(Reserved|Blocked|Not available)$`)
	parentheticRe = regexp.MustCompile(`\(.*\)$`)
	placeholderRe = regexp.MustCompile(`(?i)^(Reserved|Blocked|Not available|Unavailable)$`)
	phoneRe       = regexp.MustCompile(`(?i)(?:Phone|Tel|Mobile):\s*(\+?[\d\s-]+)`)
	phoneStripRe  = regexp.MustCompile(`[\s-]`)
)

// ExtractGuestInfo derives a display name and optional phone number from an
// event's summary and description. Both extractions are best effort.
func ExtractGuestInfo(e Event) (name string, phone string) {
	name = PlaceholderGuestName

	if e.Summary != "" {
		name = suffixRe.ReplaceAllString(e.Summary, "")
		name = parentheticRe.ReplaceAllString(name, "")
		name = strings.TrimSpace(name)
		if name == "" || placeholderRe.MatchString(name) {
			name = PlaceholderGuestName
		}
	}

	if e.Description != "" {
		if m := phoneRe.FindStringSubmatch(e.Description); m != nil {
			phone = phoneStripRe.ReplaceAllString(m[1], "")
		}
	}

	return name, phone
}
