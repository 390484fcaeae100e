package audit

import (
	"time"

	"github.com/google/uuid"
)

// GenerationRecord is the audit trail of one generation request. It never
// holds image bytes or result URLs.
type GenerationRecord struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ClientIP  string    `json:"client_ip" db:"client_ip"` // masked
	Topic     string    `json:"topic" db:"topic"`
	Quality   string    `json:"quality" db:"quality"`
	Size      string    `json:"size" db:"size"`
	Mode      string    `json:"mode" db:"mode"`
	Outcome   string    `json:"outcome" db:"outcome"`
	LatencyMs int64     `json:"latency_ms" db:"latency_ms"`
	CostUSD   float64   `json:"cost_usd" db:"cost_usd"`
	Model     string    `json:"model" db:"model"`
	RequestID string    `json:"request_id" db:"request_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// RecordFilter narrows a listing of generation records.
type RecordFilter struct {
	Outcome *string    `json:"outcome,omitempty"`
	Since   *time.Time `json:"since,omitempty"`
	Limit   int        `json:"limit"`
	Offset  int        `json:"offset"`
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Normalize clamps the paging values into range.
func (f *RecordFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}
