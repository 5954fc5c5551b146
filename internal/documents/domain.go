package documents

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/autoshop-erp/autoshop/internal/shared"
)

// Document is a JSON record stored in one collection.
type Document struct {
	ID           string          `json:"id"`
	Collection   string          `json:"collection"`
	Data         json.RawMessage `json:"data"`
	CreatedBy    int64           `json:"created_by"`
	UpdatedBy    int64           `json:"updated_by"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	DispatchedAt *time.Time      `json:"dispatched_at,omitempty"`
}

// NewDocument carries the fields required to insert a document.
type NewDocument struct {
	ID             string
	Collection     string
	Data           json.RawMessage
	CreatedBy      int64
	IdempotencyKey string
}

// ListResult is a page of documents with pagination metadata.
type ListResult struct {
	Items      []Document        `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

// objectBody validates that raw is a single JSON object and returns it compacted.
func objectBody(raw []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: body must be a JSON object", shared.ErrValidation)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("%w: body must be a JSON object", shared.ErrValidation)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, fmt.Errorf("%w: body must be a JSON object", shared.ErrValidation)
	}
	return buf.Bytes(), nil
}
