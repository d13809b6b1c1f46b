package task

import (
	"fmt"
	"strings"
	"time"

	"taskdeck/internal/model"
)

const icsDateLayout = "20060102"

// BuildCalendarICS builds a simple iCalendar event for a task. A due date
// is required so the exported event has a concrete start date.
func BuildCalendarICS(t *Task, now time.Time) (string, error) {
	dueRaw := ""
	if d := t.DueDate(); d != nil {
		dueRaw = strings.TrimSpace(*d)
	}
	if dueRaw == "" {
		return "", fmt.Errorf("task due date required for calendar export")
	}

	due, err := time.ParseInLocation(model.DateLayout, dueRaw, time.Local)
	if err != nil {
		return "", fmt.Errorf("task due date must be YYYY-MM-DD")
	}
	end := due.AddDate(0, 0, 1)

	title := strings.TrimSpace(t.Title())
	if title == "" {
		title = "Taskdeck Task"
	}
	desc := strings.TrimSpace(t.Description())

	uid := fmt.Sprintf("task-%s@taskdeck", strings.TrimSpace(string(t.ID())))
	if strings.TrimSpace(string(t.ID())) == "" {
		uid = fmt.Sprintf("task-export-%d@taskdeck", now.UnixNano())
	}

	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Taskdeck//Task Export//EN",
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
		"BEGIN:VEVENT",
		"UID:" + escapeICSText(uid),
		"DTSTAMP:" + now.UTC().Format("20060102T150405Z"),
		"SUMMARY:" + escapeICSText(title),
		"DTSTART;VALUE=DATE:" + due.Format(icsDateLayout),
		"DTEND;VALUE=DATE:" + end.Format(icsDateLayout),
	}
	if desc != "" {
		lines = append(lines, "DESCRIPTION:"+escapeICSText(desc))
	}
	if rrule := recurrenceToICSRRULE(t.Record()); rrule != "" {
		lines = append(lines, "RRULE:"+rrule)
	}
	lines = append(lines, "END:VEVENT", "END:VCALENDAR", "")

	return strings.Join(lines, "\r\n"), nil
}

func recurrenceToICSRRULE(rec model.Record) string {
	if rec.Type != model.TypeRecurring || !rec.RecurrencePattern.Valid() {
		return ""
	}
	interval := rec.RecurrenceInterval
	if interval <= 0 {
		interval = 1
	}

	freq := ""
	switch rec.RecurrencePattern {
	case model.RecurDaily:
		freq = "DAILY"
	case model.RecurWeekly:
		freq = "WEEKLY"
	case model.RecurMonthly:
		freq = "MONTHLY"
	case model.RecurYearly:
		freq = "YEARLY"
	}
	return fmt.Sprintf("FREQ=%s;INTERVAL=%d", freq, interval)
}

func escapeICSText(s string) string {
	repl := strings.NewReplacer(
		"\\", "\\\\",
		";", "\\;",
		",", "\\,",
		"\r\n", "\\n",
		"\n", "\\n",
		"\r", "\\n",
	)
	return repl.Replace(s)
}
