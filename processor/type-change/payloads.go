package typechange

import (
	"fmt"
	"strings"

	"github.com/c360studio/semtype/instance"
)

// Request asks for the preview of an instance converted to another
// definition.
type Request struct {
	RequestID    string `json:"request_id,omitempty"`
	InstanceID   string `json:"instance_id"`
	DefinitionID string `json:"definition_id"`
}

// Validate checks that the request names an instance and a definition.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.InstanceID) == "" {
		return fmt.Errorf("instance_id is required")
	}
	if strings.TrimSpace(r.DefinitionID) == "" {
		return fmt.Errorf("definition_id is required")
	}
	return nil
}

// Preview is the outcome of a type change preview.
type Preview struct {
	Instance  *instance.Instance `json:"instance"`
	Unchanged bool               `json:"unchanged,omitempty"`
	Dropped   []string           `json:"dropped,omitempty"`
	Affected  []string           `json:"affected,omitempty"`
	Event     string             `json:"event,omitempty"`
}

// Result answers a Request. Rejected results carry the reason in Error and
// are not retried.
type Result struct {
	RequestID    string   `json:"request_id,omitempty"`
	InstanceID   string   `json:"instance_id"`
	DefinitionID string   `json:"definition_id"`
	Preview      *Preview `json:"preview,omitempty"`
	Rejected     bool     `json:"rejected,omitempty"`
	Error        string   `json:"error,omitempty"`
}
