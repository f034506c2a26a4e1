package reminder

import (
	"fmt"
	"strings"
	"time"

	"deadlinebot/internal/canvas"
)

const dueTimeFormat = "Mon Jan 2 15:04 MST"

func assignmentLine(a canvas.Assignment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📌 %s (%s) — due %s", a.Title, a.CourseName, a.DueAt.UTC().Format(dueTimeFormat))
	if a.Points > 0 {
		fmt.Fprintf(&b, " · %g pts", a.Points)
	}
	if a.HTMLURL != "" {
		b.WriteString("\n")
		b.WriteString(a.HTMLURL)
	}
	return b.String()
}

func formatReminder(a canvas.Assignment, threshold time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⏳ Reminder: %s (%s) is due in %s — %s",
		a.Title, a.CourseName, humanDuration(threshold), a.DueAt.UTC().Format(dueTimeFormat))
	if a.HTMLURL != "" {
		b.WriteString("\n")
		b.WriteString(a.HTMLURL)
	}
	return b.String()
}

func formatNext(as []canvas.Assignment) string {
	lines := make([]string, 0, len(as)+1)
	lines = append(lines, "📖 Next assignments")
	for _, a := range as {
		lines = append(lines, assignmentLine(a))
	}
	return strings.Join(lines, "\n")
}

// StartupMessage is posted to the paired channel once the bot is up, so
// the channel knows reminders are live and at which lead times.
func StartupMessage(thresholds []time.Duration, pollInterval time.Duration) string {
	leads := make([]string, 0, len(thresholds))
	for _, t := range thresholds {
		leads = append(leads, humanDuration(t))
	}
	return fmt.Sprintf("🤖 Deadline bot online. Reminders at %s before each due date, checking every %s.",
		strings.Join(leads, ", "), humanDuration(pollInterval))
}

func formatDigest(as []canvas.Assignment) string {
	lines := make([]string, 0, len(as)+1)
	lines = append(lines, "📚 Upcoming assignments")
	for _, a := range as {
		lines = append(lines, assignmentLine(a))
	}
	return strings.Join(lines, "\n")
}

// humanDuration renders thresholds the way a person would say them.
// Mixed durations (e.g. 1h30m) fall back to Go's notation.
func humanDuration(d time.Duration) string {
	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		n := int(d / (24 * time.Hour))
		if n == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", n)
	case d >= time.Hour && d%time.Hour == 0:
		n := int(d / time.Hour)
		if n == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", n)
	case d >= time.Minute && d%time.Minute == 0:
		n := int(d / time.Minute)
		if n == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", n)
	default:
		return d.String()
	}
}
