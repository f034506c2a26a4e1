// Package canvas fetches upcoming assignments from the Canvas LMS REST API.
package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	logx "deadlinebot/pkg/logx"
)

// Assignment is one course task with a due timestamp.
// Immutable once fetched; snapshots are replaced wholesale.
type Assignment struct {
	ID         string // "courseID:assignmentID", unique per course+assignment
	CourseID   int64
	CourseName string
	Title      string
	DueAt      time.Time // UTC
	Points     float64
	HTMLURL    string
}

// Source is the assignment data source consumed by the poll engine.
type Source interface {
	FetchUpcoming(ctx context.Context) ([]Assignment, error)
}

type Config struct {
	BaseURL   string
	Token     string
	CourseIDs []int64 // empty = all active enrollments

	// Horizon bounds how far ahead an assignment may be due to count
	// as upcoming.
	Horizon time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
	log  logx.Logger

	now func() time.Time
}

func NewClient(cfg Config, log logx.Logger) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.Horizon <= 0 {
		cfg.Horizon = 7 * 24 * time.Hour
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 15 * time.Second},
		log:  log,
		now:  time.Now,
	}
}

// Canvas wire shapes (only the fields we read).
type apiCourse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type apiAssignment struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	DueAt          *string `json:"due_at"`
	PointsPossible float64 `json:"points_possible"`
	HTMLURL        string  `json:"html_url"`
}

// FetchUpcoming returns all assignments due between now and now+horizon,
// sorted ascending by (due, course, title). Any transport/auth failure
// aborts the whole fetch; partial results are never returned.
func (c *Client) FetchUpcoming(ctx context.Context) ([]Assignment, error) {
	now := c.now().UTC()
	horizon := now.Add(c.cfg.Horizon)

	courses, err := c.listCourses(ctx)
	if err != nil {
		return nil, err
	}

	var out []Assignment
	for _, course := range courses {
		as, err := c.listAssignments(ctx, course.ID)
		if err != nil {
			return nil, err
		}
		for _, a := range as {
			if a.DueAt == nil || *a.DueAt == "" {
				continue
			}
			due, err := time.Parse(time.RFC3339, *a.DueAt)
			if err != nil {
				c.log.Debug("skipping assignment with bad due_at",
					logx.Int64("assignment_id", a.ID), logx.String("due_at", *a.DueAt))
				continue
			}
			due = due.UTC()
			if due.Before(now) || due.After(horizon) {
				continue
			}
			out = append(out, Assignment{
				ID:         fmt.Sprintf("%d:%d", course.ID, a.ID),
				CourseID:   course.ID,
				CourseName: course.Name,
				Title:      a.Name,
				DueAt:      due,
				Points:     a.PointsPossible,
				HTMLURL:    a.HTMLURL,
			})
		}
	}

	SortAssignments(out)
	c.log.Debug("fetched upcoming assignments",
		logx.Int("courses", len(courses)), logx.Int("assignments", len(out)))
	return out, nil
}

// SortAssignments orders ascending by due time, breaking ties by course
// name then title so output is deterministic for any input ordering.
func SortAssignments(as []Assignment) {
	sort.Slice(as, func(i, j int) bool {
		if !as[i].DueAt.Equal(as[j].DueAt) {
			return as[i].DueAt.Before(as[j].DueAt)
		}
		if as[i].CourseName != as[j].CourseName {
			return as[i].CourseName < as[j].CourseName
		}
		return as[i].Title < as[j].Title
	})
}

func (c *Client) listCourses(ctx context.Context) ([]apiCourse, error) {
	if len(c.cfg.CourseIDs) > 0 {
		// Fixed course list: fetch each course for its display name.
		out := make([]apiCourse, 0, len(c.cfg.CourseIDs))
		for _, id := range c.cfg.CourseIDs {
			var course apiCourse
			u := fmt.Sprintf("%s/api/v1/courses/%d", c.cfg.BaseURL, id)
			if _, err := c.getJSON(ctx, u, &course); err != nil {
				return nil, err
			}
			out = append(out, course)
		}
		return out, nil
	}

	var out []apiCourse
	next := c.cfg.BaseURL + "/api/v1/courses?enrollment_state=active&per_page=100"
	for next != "" {
		var page []apiCourse
		n, err := c.getJSON(ctx, next, &page)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		next = n
	}
	return out, nil
}

func (c *Client) listAssignments(ctx context.Context, courseID int64) ([]apiAssignment, error) {
	var out []apiAssignment
	next := fmt.Sprintf("%s/api/v1/courses/%d/assignments?bucket=upcoming&per_page=100", c.cfg.BaseURL, courseID)
	for next != "" {
		var page []apiAssignment
		n, err := c.getJSON(ctx, next, &page)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		next = n
	}
	return out, nil
}

// getJSON performs one authenticated GET, decodes the body into v, and
// returns the rel="next" pagination link (empty when exhausted).
func (c *Client) getJSON(ctx context.Context, rawURL string, v any) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("canvas: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("canvas: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("canvas: %s returned %d: %s", redactURL(rawURL), resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return "", fmt.Errorf("canvas: decode %s: %w", redactURL(rawURL), err)
	}
	return nextLink(resp.Header.Get("Link")), nil
}

// nextLink extracts the rel="next" URL from a Canvas Link header.
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		section := strings.Split(part, ";")
		if len(section) < 2 {
			continue
		}
		u := strings.Trim(strings.TrimSpace(section[0]), "<>")
		for _, param := range section[1:] {
			if strings.TrimSpace(param) == `rel="next"` {
				return u
			}
		}
	}
	return ""
}

// redactURL strips query parameters before errors reach the logs.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "canvas url"
	}
	u.RawQuery = ""
	return u.String()
}
