package reminder

import (
	"strings"
	"time"

	"deadlinebot/internal/canvas"
)

// nextLimit caps how many assignments a !next reply lists.
const nextLimit = 5

const (
	pingReply           = "pong 🏓"
	noDataReply         = "⚠️ No assignment data right now — the course source hasn't been reached recently. Try again in a few minutes."
	nothingUpcomingText = "🎉 No upcoming assignments found."
)

// Responder answers chat commands from the current snapshot, independent
// of poll timing. It never writes to the ledger.
type Responder struct {
	// Staleness is how old the snapshot may be before !next answers
	// "no data" instead of listing possibly-outdated assignments.
	Staleness time.Duration
}

// Respond returns the reply for a command message, or ok=false when the
// text is not a command this bot answers.
func (r Responder) Respond(now time.Time, text string, snap *Snapshot) (reply string, ok bool) {
	cmd := parseCommand(text)
	switch cmd {
	case "ping":
		return pingReply, true
	case "next":
		return r.next(now, snap), true
	default:
		return "", false
	}
}

func (r Responder) next(now time.Time, snap *Snapshot) string {
	if snap == nil || (r.Staleness > 0 && now.Sub(snap.FetchedAt) > r.Staleness) {
		return noDataReply
	}

	// Sort locally so output is deterministic for any snapshot ordering:
	// ascending due time, ties broken by course name then title.
	upcoming := snap.Assignments[:0:0]
	for _, a := range snap.Assignments {
		if a.DueAt.After(now) {
			upcoming = append(upcoming, a)
		}
	}
	if len(upcoming) == 0 {
		return nothingUpcomingText
	}
	canvas.SortAssignments(upcoming)
	if len(upcoming) > nextLimit {
		upcoming = upcoming[:nextLimit]
	}
	return formatNext(upcoming)
}

// parseCommand extracts the command word from "!cmd", "/cmd" or
// "/cmd@BotName", lowercased. Returns "" for non-command text.
func parseCommand(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	head := fields[0]
	if len(head) < 2 || (head[0] != '!' && head[0] != '/') {
		return ""
	}
	cmd := strings.ToLower(head[1:])
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	return cmd
}
