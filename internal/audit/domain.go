package audit

import "time"

// Entry is one immutable audit record.
type Entry struct {
	ID         int64          `json:"id,omitempty"`
	Timestamp  time.Time      `json:"ts"`
	UserID     int64          `json:"userId"`
	OrgID      int64          `json:"orgId"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	ResourceID int64          `json:"resourceId"`
	Allowed    bool           `json:"allowed"`
	Reason     *string        `json:"reason"`
	Meta       map[string]any `json:"meta"`
}

// Row is an entry as read back, joined to the acting user's name.
type Row struct {
	Entry
	UserName *string
}

// LogEntry is the read-side representation returned to audit viewers.
type LogEntry struct {
	ID             int64          `json:"id"`
	Action         string         `json:"action"`
	EntityType     string         `json:"entityType"`
	EntityID       int64          `json:"entityId"`
	UserID         int64          `json:"userId"`
	UserName       string         `json:"userName"`
	OrganizationID int64          `json:"organizationId"`
	Allowed        bool           `json:"allowed"`
	Reason         *string        `json:"reason"`
	Metadata       map[string]any `json:"metadata"`
	CreatedAt      time.Time      `json:"createdAt"`
}
