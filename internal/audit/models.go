package audit

import "time"

// SecurityEvent is one persisted engine escalation. The durable trail is a
// collaborator concern; the engine itself never reads these back.
type SecurityEvent struct {
	ID        string            `db:"id" json:"id"`
	EventType string            `db:"event_type" json:"event_type"`
	ClientKey string            `db:"client_key" json:"client_key"`
	Metadata  map[string]string `db:"metadata" json:"metadata"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
}
