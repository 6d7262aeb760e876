package audit

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	reason := "Access denied"
	entries := []LogEntry{{
		ID:             5,
		Action:         "DELETE",
		EntityType:     "Task",
		EntityID:       12,
		UserID:         3,
		UserName:       "Viewer, Vic",
		OrganizationID: 1,
		Allowed:        false,
		Reason:         &reason,
		Metadata:       map[string]any{"method": "DELETE"},
		CreatedAt:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, entries))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "ID", records[0][0])
	assert.Equal(t, []string{"5", "2025-03-01T12:00:00Z", "3", "Viewer, Vic", "1", "DELETE", "Task", "12", "false", "Access denied", `{"method":"DELETE"}`}, records[1])
}
