package pipeline

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Lightweight time-mention parsing for reminder anchoring. Full natural
// language date parsing is the model's job; this only recognizes the
// patterns the classifier reliably surfaces ("3pm", "15:30", "tomorrow").

var clockRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)

// parseTimeMention resolves the first recognizable time hint into a
// concrete future timestamp. A time that already passed today rolls to
// tomorrow; an explicit "tomorrow" in the input always advances a day.
// Returns nil when no hint parses.
func parseTimeMention(now time.Time, input string, hints []string) *time.Time {
	candidates := append([]string{}, hints...)
	candidates = append(candidates, input)

	for _, candidate := range candidates {
		m := clockRe.FindStringSubmatch(candidate)
		if m == nil {
			continue
		}
		hour, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		meridiem := strings.ToLower(m[3])
		// A bare number without meridiem or minutes is too ambiguous
		// ("call 3 people").
		if meridiem == "" && m[2] == "" {
			continue
		}
		if meridiem == "pm" && hour < 12 {
			hour += 12
		}
		if meridiem == "am" && hour == 12 {
			hour = 0
		}
		if hour > 23 || minute > 59 {
			continue
		}

		at := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		lower := strings.ToLower(input)
		if strings.Contains(lower, "tomorrow") {
			at = at.AddDate(0, 0, 1)
		} else if !at.After(now) {
			at = at.AddDate(0, 0, 1)
		}
		return &at
	}
	return nil
}

// parseDeadline resolves an extraction deadline string ("tomorrow",
// "friday", "2026-03-14", "5pm") to a timestamp. Unparseable deadlines
// yield nil; the action item simply stays undated.
func parseDeadline(now time.Time, deadline string) *time.Time {
	deadline = strings.TrimSpace(strings.ToLower(deadline))
	if deadline == "" {
		return nil
	}

	if t, err := time.ParseInLocation("2006-01-02", deadline, now.Location()); err == nil {
		return &t
	}

	switch deadline {
	case "today", "eod", "end of day":
		t := time.Date(now.Year(), now.Month(), now.Day(), 18, 0, 0, 0, now.Location())
		return &t
	case "tomorrow":
		t := time.Date(now.Year(), now.Month(), now.Day(), 18, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
		return &t
	case "next week":
		t := now.AddDate(0, 0, 7)
		return &t
	}

	weekdays := map[string]time.Weekday{
		"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
		"wednesday": time.Wednesday, "thursday": time.Thursday,
		"friday": time.Friday, "saturday": time.Saturday,
	}
	if wd, ok := weekdays[deadline]; ok {
		days := (int(wd) - int(now.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		t := time.Date(now.Year(), now.Month(), now.Day(), 18, 0, 0, 0, now.Location()).AddDate(0, 0, days)
		return &t
	}

	return parseTimeMention(now, deadline, nil)
}
