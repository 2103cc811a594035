package models

import (
	"encoding/json"
	"time"
)

// DataQualityIssue records an upstream record dropped during normalization.
type DataQualityIssue struct {
	ID          string          `db:"id" json:"id"`
	Collection  Collection      `db:"collection" json:"collection"`
	RecordIndex int             `db:"record_index" json:"recordIndex"`
	Reason      string          `db:"reason" json:"reason"`
	Raw         json.RawMessage `db:"raw" json:"raw,omitempty"`
	RequestID   *string         `db:"request_id" json:"requestId,omitempty"`
	DetectedAt  time.Time       `db:"detected_at" json:"detectedAt"`
}

// DataQualityFilter narrows issue listings.
type DataQualityFilter struct {
	Collection *Collection
	Since      *time.Time
	Limit      int
}
