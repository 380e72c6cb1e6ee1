package graph

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/message"
)

func init() {
	err := component.RegisterPayload(&component.PayloadRegistration{
		Domain:      "semtype",
		Category:    "typechange",
		Version:     "v1",
		Description: "Type change event payload for graph ingestion with triples",
		Factory:     func() any { return &TypeChangePayload{} },
	})
	if err != nil {
		panic("failed to register TypeChangePayload: " + err.Error())
	}
}

// TypeChangeType is the message type for type change payloads.
var TypeChangeType = message.Type{Domain: "semtype", Category: "typechange", Version: "v1"}

// TypeChangePayload implements message.Payload and graph.Graphable for a
// type change event.
type TypeChangePayload struct {
	EventID    string           `json:"id"`
	TripleData []message.Triple `json:"triples"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

func (p *TypeChangePayload) EntityID() string          { return p.EventID }
func (p *TypeChangePayload) Triples() []message.Triple { return p.TripleData }
func (p *TypeChangePayload) Schema() message.Type      { return TypeChangeType }

func (p *TypeChangePayload) Validate() error {
	if p.EventID == "" {
		return errors.New("event ID is required")
	}
	if len(p.TripleData) == 0 {
		return errors.New("at least one triple is required")
	}
	return nil
}

func (p *TypeChangePayload) MarshalJSON() ([]byte, error) {
	type Alias TypeChangePayload
	return json.Marshal((*Alias)(p))
}

func (p *TypeChangePayload) UnmarshalJSON(data []byte) error {
	type Alias TypeChangePayload
	return json.Unmarshal(data, (*Alias)(p))
}
