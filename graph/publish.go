// Package graph publishes type change events to the knowledge graph.
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/c360studio/semtype/instance"
	"github.com/c360studio/semtype/vocabulary/emf"
	"github.com/c360studio/semstreams/message"
	"github.com/google/uuid"
)

// GraphIngestSubject is the subject for graph ingestion.
const GraphIngestSubject = "graph.ingest.entity"

// source is recorded on every triple.
const source = "semtype.migration"

// Publisher publishes to a JetStream stream. *natsclient.Client satisfies it.
type Publisher interface {
	PublishToStream(ctx context.Context, subject string, data []byte) error
}

// TypeChange describes a prepared type change.
type TypeChange struct {
	// Previous is the instance as stored before the change
	Previous *instance.Instance

	// Migrated is the instance returned by the coordinator
	Migrated *instance.Instance

	// Dropped names the target fields left empty
	Dropped []string

	// Affected lists the ids of referring instances that stay valid
	Affected []string
}

// PublishTypeChange publishes a type change event and returns its entity id.
// A nil publisher skips publishing.
func PublishTypeChange(ctx context.Context, pub Publisher, change TypeChange) (string, error) {
	if pub == nil {
		return "", nil
	}
	payload, err := NewTypeChangePayload(change, time.Now())
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal type change: %w", err)
	}
	if err := pub.PublishToStream(ctx, GraphIngestSubject, data); err != nil {
		return "", fmt.Errorf("publish type change: %w", err)
	}
	return payload.EventID, nil
}

// NewTypeChangePayload builds the triples describing a type change.
func NewTypeChangePayload(change TypeChange, now time.Time) (*TypeChangePayload, error) {
	if change.Previous == nil || change.Migrated == nil {
		return nil, errors.New("type change requires the previous and migrated instance")
	}

	eventID := TypeChangeEntityID(uuid.New().String())
	triple := func(predicate string, object any) message.Triple {
		return message.Triple{
			Subject:    eventID,
			Predicate:  predicate,
			Object:     object,
			Source:     source,
			Timestamp:  now,
			Confidence: 1.0,
		}
	}

	prev, next := change.Previous, change.Migrated
	triples := []message.Triple{
		triple(emf.TypeChangeInstance, next.ID),
		triple(emf.TypeChangeDefinition, next.Identifier),
		triple(emf.TypeChangeSemanticType, next.Type.ID()),
		triple(emf.TypeChangePreviousDefinition, prev.Identifier),
		triple(emf.TypeChangePreviousSemanticType, prev.Type.ID()),
	}
	if status := next.GetString(instance.PropertyStatus); status != "" {
		triples = append(triples, triple(emf.TypeChangeStatus, status))
	}
	for _, name := range change.Dropped {
		triples = append(triples, triple(emf.TypeChangeDroppedProperty, name))
	}
	for _, id := range change.Affected {
		triples = append(triples, triple(emf.TypeChangeAffected, id))
	}

	return &TypeChangePayload{
		EventID:    eventID,
		TripleData: triples,
		UpdatedAt:  now,
	}, nil
}

// TypeChangeEntityID generates a consistent entity ID for a type change event.
// Format: semtype.local.migration.typechange.event.<id>
func TypeChangeEntityID(id string) string {
	return fmt.Sprintf("semtype.local.migration.typechange.event.%s", id)
}
