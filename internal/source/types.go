package source

// Activity is a read-only snapshot of a v1 activity row. CustomName and
// CustomColor come from the per-user profile_activities override table and,
// when present, take precedence over the base name/color at migration time.
type Activity struct {
	ID          string  `json:"activity_id"`
	Name        string  `json:"name"`
	Color       string  `json:"color"`
	UserID      string  `json:"user_id"`
	CategoryID  *string `json:"category_id,omitempty"`
	CustomName  *string `json:"custom_name,omitempty"`
	CustomColor *string `json:"custom_color,omitempty"`
}

// Timeslice is a v1 timeslice row. Timestamps are RFC 3339 UTC strings.
type Timeslice struct {
	ID         string `json:"timeslice_id"`
	ActivityID string `json:"activity_id"`
	UserID     string `json:"user_id"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
}

// Note is a v1 note row. Message may be plaintext or ciphertext.
type Note struct {
	ID          string `json:"note_id"`
	TimesliceID string `json:"timeslice_id"`
	UserID      string `json:"user_id"`
	Message     string `json:"message"`
	CreatedAt   string `json:"created_at"`
}

// State is a v1 state row. Energy is optional in the legacy schema.
type State struct {
	ID          string   `json:"state_id"`
	TimesliceID string   `json:"timeslice_id"`
	UserID      string   `json:"user_id"`
	Energy      *float64 `json:"energy,omitempty"`
	CreatedAt   string   `json:"created_at"`
}
