package reminder

import (
	"strings"
	"testing"
	"time"
)

func TestPingAlwaysSameReply(t *testing.T) {
	t.Parallel()
	r := Responder{Staleness: 15 * time.Minute}

	for _, snap := range []*Snapshot{nil, snapOf(), snapOf(assignment("1", "a", "b", baseTime))} {
		reply, ok := r.Respond(baseTime, "!ping", snap)
		if !ok {
			t.Fatal("!ping not handled")
		}
		if reply != pingReply {
			t.Fatalf("reply = %q, want %q", reply, pingReply)
		}
	}
}

func TestNextSortsForAnyInputOrdering(t *testing.T) {
	t.Parallel()
	r := Responder{Staleness: time.Hour}
	due := baseTime.Add(48 * time.Hour)

	// Deliberately unsorted, with a due-time tie broken by course, then title.
	snap := snapOf(
		assignment("3", "Chemistry", "Lab", due.Add(2*time.Hour)),
		assignment("2", "Biology", "Quiz", due),
		assignment("1", "Biology", "Essay", due),
		assignment("4", "Algebra", "Worksheet", due),
	)

	reply, ok := r.Respond(baseTime, "!next", snap)
	if !ok {
		t.Fatal("!next not handled")
	}
	wantOrder := []string{"Worksheet", "Essay", "Quiz", "Lab"}
	idx := -1
	for _, title := range wantOrder {
		i := strings.Index(reply, title)
		if i < 0 {
			t.Fatalf("reply missing %q:\n%s", title, reply)
		}
		if i < idx {
			t.Fatalf("%q out of order:\n%s", title, reply)
		}
		idx = i
	}
}

func TestNextFiltersPastDueAndCaps(t *testing.T) {
	t.Parallel()
	r := Responder{Staleness: time.Hour}

	as := []struct {
		title string
		due   time.Time
	}{
		{"gone", baseTime.Add(-time.Hour)},
		{"alpha", baseTime.Add(1 * time.Hour)},
		{"bravo", baseTime.Add(2 * time.Hour)},
		{"charlie", baseTime.Add(3 * time.Hour)},
		{"delta", baseTime.Add(4 * time.Hour)},
		{"echo", baseTime.Add(5 * time.Hour)},
		{"foxtrot", baseTime.Add(6 * time.Hour)},
	}
	snap := &Snapshot{FetchedAt: baseTime}
	for i, a := range as {
		snap.Assignments = append(snap.Assignments, assignment(string(rune('0'+i)), "Course", a.title, a.due))
	}

	reply, _ := r.Respond(baseTime, "!next", snap)
	if strings.Contains(reply, "gone") {
		t.Fatalf("past-due assignment listed:\n%s", reply)
	}
	if strings.Contains(reply, "foxtrot") {
		t.Fatalf("list not capped at %d:\n%s", nextLimit, reply)
	}
	if !strings.Contains(reply, "echo") {
		t.Fatalf("expected 5th entry present:\n%s", reply)
	}
}

func TestNextNoData(t *testing.T) {
	t.Parallel()
	r := Responder{Staleness: 15 * time.Minute}

	// No snapshot at all.
	reply, _ := r.Respond(baseTime, "!next", nil)
	if reply != noDataReply {
		t.Fatalf("nil snapshot reply = %q", reply)
	}

	// Stale snapshot.
	stale := &Snapshot{FetchedAt: baseTime.Add(-time.Hour)}
	reply, _ = r.Respond(baseTime, "!next", stale)
	if reply != noDataReply {
		t.Fatalf("stale snapshot reply = %q", reply)
	}

	// Fresh but empty: explicitly "nothing upcoming", not "no data".
	fresh := &Snapshot{FetchedAt: baseTime}
	reply, _ = r.Respond(baseTime, "!next", fresh)
	if reply != nothingUpcomingText {
		t.Fatalf("fresh empty reply = %q", reply)
	}
}

func TestParseCommand(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{"!ping", "ping"},
		{"/ping", "ping"},
		{"!NEXT", "next"},
		{"/next@DeadlineBot", "next"},
		{"!next extra args", "next"},
		{"hello there", ""},
		{"", ""},
		{"!", ""},
		{"! ping", ""},
	}
	for _, tt := range tests {
		if got := parseCommand(tt.in); got != tt.want {
			t.Errorf("parseCommand(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
