package source

import (
	"context"
	"io"
	"log"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "http://legacy.test"

// newTestClient wires a Client against an httpmock transport and a manually
// advanced clock.
func newTestClient(t *testing.T) (*Client, *time.Time) {
	t.Helper()

	hc := &http.Client{}
	httpmock.ActivateNonDefault(hc)
	t.Cleanup(httpmock.DeactivateAndReset)

	now := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	c := New(testBaseURL, "anon-key",
		WithHTTPClient(hc),
		WithLogger(log.New(io.Discard, "", 0)),
		WithClock(func() time.Time { return now }))
	return c, &now
}

func registerAuth(t *testing.T) {
	t.Helper()
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/auth/v1/token?grant_type=password",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]any{
			"access_token": "opaque-token",
			"token_type":   "bearer",
			"expires_in":   3600,
		}))
}

func registerCount(t *testing.T, table string, total string) {
	t.Helper()
	httpmock.RegisterResponder(http.MethodGet, `=~^`+testBaseURL+`/rest/v1/`+table,
		func(req *http.Request) (*http.Response, error) {
			resp := httpmock.NewStringResponse(http.StatusPartialContent, "[]")
			resp.Header.Set("Content-Range", "0-0/"+total)
			return resp, nil
		})
}

func TestConnectStoresSession(t *testing.T) {
	c, _ := newTestClient(t)
	registerAuth(t)

	err := c.Connect(context.Background(), "user@example.com", "hunter2")
	require.NoError(t, err)

	status := c.Status()
	require.True(t, status.IsConnected)
	require.Equal(t, "user@example.com", status.Email)
}

func TestConnectRejectsBadCredentials(t *testing.T) {
	c, _ := newTestClient(t)
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/auth/v1/token?grant_type=password",
		httpmock.NewStringResponder(http.StatusBadRequest, `{"error":"invalid_grant"}`))

	err := c.Connect(context.Background(), "user@example.com", "wrong")
	require.Error(t, err)
	require.False(t, c.Status().IsConnected)
}

func TestEnsureHealthyFailsFastWhenNotConnected(t *testing.T) {
	c, _ := newTestClient(t)

	err := c.EnsureHealthy(context.Background())
	require.ErrorIs(t, err, ErrNotConnected)
	require.Zero(t, httpmock.GetTotalCallCount())
}

func TestEnsureHealthySkipsProbeInsideWindow(t *testing.T) {
	c, now := newTestClient(t)
	registerAuth(t)
	require.NoError(t, c.Connect(context.Background(), "user@example.com", "hunter2"))

	*now = now.Add(2 * time.Minute)

	require.NoError(t, c.EnsureHealthy(context.Background()))
	// Only the auth call has gone out; no probe inside the window.
	require.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestEnsureHealthyProbesWhenStale(t *testing.T) {
	c, now := newTestClient(t)
	registerAuth(t)
	registerCount(t, "activities", "42")
	require.NoError(t, c.Connect(context.Background(), "user@example.com", "hunter2"))

	*now = now.Add(6 * time.Minute)

	require.NoError(t, c.EnsureHealthy(context.Background()))
	info := httpmock.GetCallCountInfo()
	require.Equal(t, 1, info["POST "+testBaseURL+"/auth/v1/token?grant_type=password"])

	// A fresh check inside the window issues no further traffic.
	before := httpmock.GetTotalCallCount()
	require.NoError(t, c.EnsureHealthy(context.Background()))
	require.Equal(t, before, httpmock.GetTotalCallCount())
}

func TestEnsureHealthyReconnectsOnProbeFailure(t *testing.T) {
	c, now := newTestClient(t)
	registerAuth(t)
	httpmock.RegisterResponder(http.MethodGet, `=~^`+testBaseURL+`/rest/v1/activities`,
		httpmock.NewStringResponder(http.StatusUnauthorized, `{"message":"JWT expired"}`))
	require.NoError(t, c.Connect(context.Background(), "user@example.com", "hunter2"))

	*now = now.Add(6 * time.Minute)

	require.NoError(t, c.EnsureHealthy(context.Background()))
	info := httpmock.GetCallCountInfo()
	// Initial connect plus exactly one re-authentication.
	require.Equal(t, 2, info["POST "+testBaseURL+"/auth/v1/token?grant_type=password"])
}

func TestEnsureHealthyReconnectsBeforeTokenExpiry(t *testing.T) {
	c, now := newTestClient(t)
	registerAuth(t)
	require.NoError(t, c.Connect(context.Background(), "user@example.com", "hunter2"))

	// Inside the token's final minute.
	*now = now.Add(59*time.Minute + 30*time.Second)

	require.NoError(t, c.EnsureHealthy(context.Background()))
	info := httpmock.GetCallCountInfo()
	require.Equal(t, 2, info["POST "+testBaseURL+"/auth/v1/token?grant_type=password"])
}

func TestCountParsesContentRange(t *testing.T) {
	c, _ := newTestClient(t)
	registerAuth(t)
	registerCount(t, "timeslices", "2500")
	require.NoError(t, c.Connect(context.Background(), "user@example.com", "hunter2"))

	total, err := c.Count(context.Background(), "timeslices")
	require.NoError(t, err)
	require.Equal(t, 2500, total)
}

func TestParseContentRangeTotal(t *testing.T) {
	total, err := parseContentRangeTotal("0-24/2500")
	require.NoError(t, err)
	require.Equal(t, 2500, total)

	total, err = parseContentRangeTotal("*/120")
	require.NoError(t, err)
	require.Equal(t, 120, total)

	// An unknown total is reported as zero, not an error.
	total, err = parseContentRangeTotal("0-9/*")
	require.NoError(t, err)
	require.Zero(t, total)

	_, err = parseContentRangeTotal("garbage")
	require.Error(t, err)
}

func TestTimeslicePageSendsRangeHeaders(t *testing.T) {
	c, _ := newTestClient(t)
	registerAuth(t)

	var gotRange, gotOrder, gotAuth string
	httpmock.RegisterResponder(http.MethodGet, `=~^`+testBaseURL+`/rest/v1/timeslices`,
		func(req *http.Request) (*http.Response, error) {
			gotRange = req.Header.Get("Range")
			gotOrder = req.URL.Query().Get("order")
			gotAuth = req.Header.Get("Authorization")
			return httpmock.NewJsonResponse(http.StatusOK, []map[string]any{
				{
					"timeslice_id": "ts-1",
					"activity_id":  "a-1",
					"user_id":      "u-1",
					"start_time":   "2024-06-15T12:00:00Z",
					"end_time":     "2024-06-15T13:00:00Z",
				},
			})
		})
	require.NoError(t, c.Connect(context.Background(), "user@example.com", "hunter2"))

	rows, err := c.TimeslicePage(context.Background(), 1000, 1000)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "ts-1", rows[0].ID)
	require.Equal(t, "1000-1999", gotRange)
	require.Equal(t, "start_time.asc", gotOrder)
	require.Equal(t, "Bearer opaque-token", gotAuth)
}

func TestActivityByID(t *testing.T) {
	c, _ := newTestClient(t)
	registerAuth(t)

	httpmock.RegisterResponder(http.MethodGet, `=~^`+testBaseURL+`/rest/v1/activities`,
		func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "eq.v1-act", req.URL.Query().Get("activity_id"))
			require.Equal(t, "application/vnd.pgrst.object+json", req.Header.Get("Accept"))
			return httpmock.NewJsonResponse(http.StatusOK, map[string]any{
				"activity_id": "v1-act",
				"name":        "Reading",
				"color":       "#123456",
				"user_id":     "u-1",
			})
		})
	require.NoError(t, c.Connect(context.Background(), "user@example.com", "hunter2"))

	activity, err := c.ActivityByID(context.Background(), "v1-act")
	require.NoError(t, err)
	require.Equal(t, "Reading", activity.Name)
}

func TestActivitiesWithOverridesFlattensProfile(t *testing.T) {
	c, _ := newTestClient(t)
	registerAuth(t)

	httpmock.RegisterResponder(http.MethodGet, `=~^`+testBaseURL+`/rest/v1/activities`,
		httpmock.NewStringResponder(http.StatusOK, `[
			{"activity_id":"a-1","name":"Reading","color":"#111111","user_id":"u-1",
			 "profile_activities":[{"custom_name":"Books","custom_color":"#999999"}]},
			{"activity_id":"a-2","name":"Running","color":"#222222","user_id":"u-1",
			 "profile_activities":[]}
		]`))
	require.NoError(t, c.Connect(context.Background(), "user@example.com", "hunter2"))

	activities, err := c.ActivitiesWithOverrides(context.Background())
	require.NoError(t, err)
	require.Len(t, activities, 2)
	require.NotNil(t, activities[0].CustomName)
	require.Equal(t, "Books", *activities[0].CustomName)
	require.Nil(t, activities[1].CustomName)
}

func TestCloseClearsSessionState(t *testing.T) {
	c, _ := newTestClient(t)
	registerAuth(t)
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/auth/v1/logout",
		httpmock.NewStringResponder(http.StatusNoContent, ""))
	require.NoError(t, c.Connect(context.Background(), "user@example.com", "hunter2"))

	require.NoError(t, c.Close(context.Background()))

	status := c.Status()
	require.False(t, status.IsConnected)
	require.Empty(t, status.Email)

	// A closed client cannot silently reconnect: credentials are gone.
	err := c.EnsureHealthy(context.Background())
	require.ErrorIs(t, err, ErrNotConnected)
}
