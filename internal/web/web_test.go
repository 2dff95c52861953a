package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icsfix/internal/config"
	"icsfix/internal/fetch"
	"icsfix/internal/model"
	"icsfix/internal/scheduler"
)

const standup = "BEGIN:VEVENT\nDTSTART:20240101T090000\nDTEND:20240101T100000\nSUMMARY:Standup\nEND:VEVENT"

type staticFetcher string

func (f staticFetcher) Fetch(_ context.Context, src fetch.Source) (fetch.Payload, error) {
	return fetch.Payload{Source: src, Body: []byte(f)}, nil
}

func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, *scheduler.Store) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	cfg.Jobs = []config.JobConfig{{ID: "team", Name: "Team", URL: "mem://team", Weekly: true, WeeklyCount: 2}}
	if mutate != nil {
		mutate(cfg)
	}
	cfg.Normalize()

	store := scheduler.NewStore()
	require.NoError(t, scheduler.New(cfg, staticFetcher(standup), store).RefreshAll(context.Background()))

	s := NewServer(cfg, store)
	s.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return s, store
}

func postJSON(t *testing.T, h http.Handler, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(string(data)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGenerate(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := postJSON(t, s.Handler(), "/api/generate", generateRequest{
		Text:        standup,
		StartDate:   "2024-06-01T08:00",
		IsWeekly:    true,
		WeeklyCount: 3,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var res model.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "standup_weekly_3.ics", res.Filename)
	assert.Equal(t, "Standup (3 weekly occurrences)", res.Summary)
	assert.Equal(t, 3, strings.Count(res.ICSContent, "BEGIN:VEVENT"))
	assert.Contains(t, res.ICSContent, "DTSTART:20240615T080000")
	assert.Contains(t, res.ICSContent, "DTEND:20240615T090000")
}

func TestGenerateDownload(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := postJSON(t, s.Handler(), "/api/generate?download=1", generateRequest{Text: standup})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="standup.ics"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "BEGIN:VCALENDAR\r\n"))
}

func TestGenerateRejects(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	tests := []struct {
		name string
		body any
		want string
	}{
		{name: "empty text", body: generateRequest{Text: "  \n"}, want: "input is empty"},
		{name: "bad anchor", body: generateRequest{Text: standup, StartDate: "???"}, want: "invalid start date"},
		{name: "bad json", body: "just a string", want: "invalid JSON body"},
		{name: "weekly count over limit", body: generateRequest{Text: standup, IsWeekly: true, WeeklyCount: 1_000_000_000}, want: "too many weekly occurrences"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, h, "/api/generate", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/generate", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCalendarRoute(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/calendars/team.ics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, strings.Count(rec.Body.String(), "BEGIN:VEVENT"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/calendars/unknown.ics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJobsRoute(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp jobsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Jobs, 1)
	assert.Equal(t, "team", resp.Jobs[0].ID)
	assert.Equal(t, "standup_weekly_2.ics", resp.Jobs[0].Filename)
}

func TestBasicAuth(t *testing.T) {
	s, _ := newTestServer(t, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	})
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	req.SetBasicAuth("admin", "secret")
	req.Header.Set("X-Request-ID", "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}
