package audit

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"
)

// WriteCSV serialises audit log entries for download.
func WriteCSV(w io.Writer, entries []LogEntry) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{"ID", "CreatedAt", "UserID", "UserName", "OrganizationID", "Action", "EntityType", "EntityID", "Allowed", "Reason", "Metadata"}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, e := range entries {
		reason := ""
		if e.Reason != nil {
			reason = *e.Reason
		}
		meta, err := json.Marshal(e.Metadata)
		if err != nil {
			return err
		}
		if err := writer.Write([]string{
			strconv.FormatInt(e.ID, 10),
			e.CreatedAt.UTC().Format(time.RFC3339),
			strconv.FormatInt(e.UserID, 10),
			e.UserName,
			strconv.FormatInt(e.OrganizationID, 10),
			e.Action,
			e.EntityType,
			strconv.FormatInt(e.EntityID, 10),
			strconv.FormatBool(e.Allowed),
			reason,
			string(meta),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
