package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ImportCompletedMessage announces a new snapshot in the store. It carries
// only the import id; the worker loads the rows from the database.
type ImportCompletedMessage struct {
	ImportID  string    `json:"import_id"`
	Source    string    `json:"source"`
	RowCount  int       `json:"row_count"`
	SplitDay  int       `json:"month_split_day"`
	Timestamp time.Time `json:"timestamp"`
}

func NewImportCompletedMessage(importID, source string, rows, splitDay int) *ImportCompletedMessage {
	return &ImportCompletedMessage{
		ImportID:  importID,
		Source:    source,
		RowCount:  rows,
		SplitDay:  splitDay,
		Timestamp: time.Now(),
	}
}

func (m *ImportCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ImportCompletedMessageFromJSON decodes a message and checks its import id.
func ImportCompletedMessageFromJSON(data []byte) (*ImportCompletedMessage, error) {
	var msg ImportCompletedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(msg.ImportID); err != nil {
		return nil, fmt.Errorf("invalid import id %q: %w", msg.ImportID, err)
	}
	return &msg, nil
}
