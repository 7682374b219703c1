package amqp

import (
	"encoding/json"
	"time"
)

// BackupMessage asks the worker to mirror one transaction to the backup
// spreadsheet. It carries only the row identity; the worker loads the
// full row from the store so the message can never go stale.
type BackupMessage struct {
	ID        int64     `json:"id"`
	Owner     string    `json:"owner"`
	Timestamp time.Time `json:"timestamp"`
}

func NewBackupMessage(id int64, owner string) *BackupMessage {
	return &BackupMessage{
		ID:        id,
		Owner:     owner,
		Timestamp: time.Now(),
	}
}

func (m *BackupMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BackupMessageFromJSON(data []byte) (*BackupMessage, error) {
	var msg BackupMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
