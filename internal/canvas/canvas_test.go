package canvas

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	logx "deadlinebot/pkg/logx"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, handler http.Handler, courseIDs []int64) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(Config{
		BaseURL:   srv.URL,
		Token:     "secret-token",
		CourseIDs: courseIDs,
		Horizon:   7 * 24 * time.Hour,
	}, logx.Nop())
	c.now = func() time.Time { return testNow }
	return c
}

func TestFetchUpcomingFiltersAndSorts(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/courses", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret-token" {
			t.Errorf("Authorization = %q", got)
		}
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"id":102,"name":"Algebra"}]`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<http://%s/api/v1/courses?page=2>; rel="next"`, r.Host))
		fmt.Fprint(w, `[{"id":101,"name":"Biology"}]`)
	})
	mux.HandleFunc("/api/v1/courses/101/assignments", func(w http.ResponseWriter, r *http.Request) {
		// Out of order, plus entries that must be filtered out:
		// past due, beyond horizon, and a null due date.
		fmt.Fprint(w, `[
			{"id":3,"name":"Lab Report","due_at":"2026-03-04T23:59:00Z","points_possible":20,"html_url":"http://x/3"},
			{"id":1,"name":"Quiz 1","due_at":"2026-02-28T23:59:00Z"},
			{"id":2,"name":"Final","due_at":"2026-04-01T23:59:00Z"},
			{"id":4,"name":"Survey","due_at":null}
		]`)
	})
	mux.HandleFunc("/api/v1/courses/102/assignments", func(w http.ResponseWriter, r *http.Request) {
		// Same due instant as Lab Report: tie broken by course name.
		fmt.Fprint(w, `[{"id":9,"name":"Problem Set","due_at":"2026-03-04T23:59:00Z","points_possible":10,"html_url":"http://x/9"}]`)
	})

	c := newTestClient(t, mux, nil)
	got, err := c.FetchUpcoming(context.Background())
	if err != nil {
		t.Fatalf("FetchUpcoming: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (%+v)", len(got), got)
	}
	if got[0].ID != "102:9" || got[1].ID != "101:3" {
		t.Fatalf("order = %s, %s; want 102:9 (Algebra) before 101:3 (Biology)", got[0].ID, got[1].ID)
	}
	if got[1].CourseName != "Biology" || got[1].Title != "Lab Report" || got[1].Points != 20 {
		t.Fatalf("unexpected assignment: %+v", got[1])
	}
}

func TestFetchUpcomingFixedCourses(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/courses/55", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":55,"name":"Chemistry"}`)
	})
	mux.HandleFunc("/api/v1/courses/55/assignments", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":7,"name":"Worksheet","due_at":"2026-03-02T10:00:00Z"}]`)
	})
	mux.HandleFunc("/api/v1/courses", func(w http.ResponseWriter, r *http.Request) {
		t.Error("course listing must not be called with a fixed course list")
	})

	c := newTestClient(t, mux, []int64{55})
	got, err := c.FetchUpcoming(context.Background())
	if err != nil {
		t.Fatalf("FetchUpcoming: %v", err)
	}
	if len(got) != 1 || got[0].ID != "55:7" || got[0].CourseName != "Chemistry" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestFetchUpcomingErrorAbortsWhole(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/courses", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":101,"name":"Biology"},{"id":102,"name":"Algebra"}]`)
	})
	mux.HandleFunc("/api/v1/courses/101/assignments", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":1,"name":"Quiz","due_at":"2026-03-02T10:00:00Z"}]`)
	})
	mux.HandleFunc("/api/v1/courses/102/assignments", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})

	c := newTestClient(t, mux, nil)
	got, err := c.FetchUpcoming(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if got != nil {
		t.Fatalf("partial results returned alongside error: %+v", got)
	}
}

func TestNextLink(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "empty", header: "", want: ""},
		{
			name:   "next present",
			header: `<https://c.test/api/v1/courses?page=2>; rel="next", <https://c.test/api/v1/courses?page=1>; rel="first"`,
			want:   "https://c.test/api/v1/courses?page=2",
		},
		{
			name:   "no next",
			header: `<https://c.test/api/v1/courses?page=1>; rel="current"`,
			want:   "",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := nextLink(tt.header); got != tt.want {
				t.Fatalf("nextLink = %q, want %q", got, tt.want)
			}
		})
	}
}
