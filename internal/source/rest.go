package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Count returns the total row count of a legacy table using a count-only query.
func (c *Client) Count(ctx context.Context, table string) (int, error) {
	if err := c.EnsureHealthy(ctx); err != nil {
		return 0, err
	}
	return c.count(ctx, table)
}

// count issues the raw count query without a health check. EnsureHealthy uses
// it as its probe, so it must not call back into EnsureHealthy.
func (c *Client) count(ctx context.Context, table string) (int, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/rest/v1/"+table, url.Values{"select": {"*"}})
	if err != nil {
		return 0, err
	}
	req.Header.Set("Range", "0-0")
	req.Header.Set("Prefer", "count=exact")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("failed to count %s: status %d: %s", table, resp.StatusCode, msg)
	}

	return parseContentRangeTotal(resp.Header.Get("Content-Range"))
}

// parseContentRangeTotal extracts the total from a "0-24/2500" or "*/2500" header.
func parseContentRangeTotal(header string) (int, error) {
	idx := strings.LastIndex(header, "/")
	if idx < 0 || idx == len(header)-1 {
		return 0, fmt.Errorf("malformed Content-Range header: %q", header)
	}
	total := header[idx+1:]
	if total == "*" {
		return 0, nil
	}
	return strconv.Atoi(total)
}

// page reads one fixed-size page of a table ordered by a stable key, decoding
// the JSON array into dst.
func (c *Client) page(ctx context.Context, table, orderKey string, offset, limit int, dst any) error {
	if err := c.EnsureHealthy(ctx); err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/rest/v1/"+table, url.Values{
		"select": {"*"},
		"order":  {orderKey + ".asc"},
	})
	if err != nil {
		return err
	}
	req.Header.Set("Range", fmt.Sprintf("%d-%d", offset, offset+limit-1))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s page: %w", table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("failed to fetch %s page: status %d: %s", table, resp.StatusCode, msg)
	}

	return json.NewDecoder(resp.Body).Decode(dst)
}

// ActivityByID fetches a single activity row.
func (c *Client) ActivityByID(ctx context.Context, id string) (*Activity, error) {
	if err := c.EnsureHealthy(ctx); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/rest/v1/activities", url.Values{
		"select":      {"*"},
		"activity_id": {"eq." + id},
	})
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.pgrst.object+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch activity %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("failed to fetch activity %s: status %d: %s", id, resp.StatusCode, msg)
	}

	var activity Activity
	if err := json.NewDecoder(resp.Body).Decode(&activity); err != nil {
		return nil, err
	}
	return &activity, nil
}

// ActivitiesWithOverrides lists all source activities joined with their
// per-user profile overrides, ordered by name.
func (c *Client) ActivitiesWithOverrides(ctx context.Context) ([]Activity, error) {
	if err := c.EnsureHealthy(ctx); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/rest/v1/activities", url.Values{
		"select": {"activity_id,name,color,user_id,profile_activities(custom_name,custom_color)"},
		"order":  {"name.asc"},
	})
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch activities: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("failed to fetch activities: status %d: %s", resp.StatusCode, msg)
	}

	var rows []struct {
		Activity
		ProfileActivities []struct {
			CustomName  *string `json:"custom_name"`
			CustomColor *string `json:"custom_color"`
		} `json:"profile_activities"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, err
	}

	activities := make([]Activity, 0, len(rows))
	for _, row := range rows {
		activity := row.Activity
		if len(row.ProfileActivities) > 0 {
			activity.CustomName = row.ProfileActivities[0].CustomName
			activity.CustomColor = row.ProfileActivities[0].CustomColor
		}
		activities = append(activities, activity)
	}
	return activities, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values) (*http.Request, error) {
	c.mu.Lock()
	token := c.accessToken
	c.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.URL.RawQuery = query.Encode()
	req.Header.Set("apikey", c.apiKey)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// TimeslicePage reads timeslices [offset, offset+limit) ordered by start time.
func (c *Client) TimeslicePage(ctx context.Context, offset, limit int) ([]Timeslice, error) {
	var rows []Timeslice
	if err := c.page(ctx, "timeslices", "start_time", offset, limit, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// NotePage reads notes [offset, offset+limit) ordered by note id.
func (c *Client) NotePage(ctx context.Context, offset, limit int) ([]Note, error) {
	var rows []Note
	if err := c.page(ctx, "notes", "note_id", offset, limit, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// StatePage reads states [offset, offset+limit) ordered by state id.
func (c *Client) StatePage(ctx context.Context, offset, limit int) ([]State, error) {
	var rows []State
	if err := c.page(ctx, "states", "state_id", offset, limit, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
