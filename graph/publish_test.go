package graph

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/c360studio/semtype/instance"
	"github.com/c360studio/semtype/vocabulary/emf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	subject string
	data    []byte
	err     error
}

func (p *recordingPublisher) PublishToStream(_ context.Context, subject string, data []byte) error {
	p.subject = subject
	p.data = data
	return p.err
}

func testChange() TypeChange {
	prev := instance.New("emf:case-1", "caseDef")
	prev.Type = instance.InstanceType(emf.ClassCase)
	next := instance.New("emf:case-1", "projectDef")
	next.Type = instance.InstanceType(emf.ClassProject)
	next.Add(instance.PropertyStatus, instance.StateInitial)
	return TypeChange{
		Previous: prev,
		Migrated: next,
		Dropped:  []string{"property2"},
		Affected: []string{"emf:task-1", "emf:task-2"},
	}
}

func objects(p *TypeChangePayload, predicate string) []any {
	var result []any
	for _, tr := range p.Triples() {
		if tr.Predicate == predicate {
			result = append(result, tr.Object)
		}
	}
	return result
}

func TestNewTypeChangePayload(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p, err := NewTypeChangePayload(testChange(), now)
	require.NoError(t, err)
	require.NoError(t, p.Validate())

	assert.True(t, strings.HasPrefix(p.EntityID(), "semtype.local.migration.typechange.event."))
	assert.Equal(t, TypeChangeType, p.Schema())
	assert.Equal(t, []any{"emf:case-1"}, objects(p, emf.TypeChangeInstance))
	assert.Equal(t, []any{"projectDef"}, objects(p, emf.TypeChangeDefinition))
	assert.Equal(t, []any{emf.ClassProject}, objects(p, emf.TypeChangeSemanticType))
	assert.Equal(t, []any{"caseDef"}, objects(p, emf.TypeChangePreviousDefinition))
	assert.Equal(t, []any{emf.ClassCase}, objects(p, emf.TypeChangePreviousSemanticType))
	assert.Equal(t, []any{instance.StateInitial}, objects(p, emf.TypeChangeStatus))
	assert.Equal(t, []any{"property2"}, objects(p, emf.TypeChangeDroppedProperty))
	assert.Equal(t, []any{"emf:task-1", "emf:task-2"}, objects(p, emf.TypeChangeAffected))

	for _, tr := range p.Triples() {
		assert.Equal(t, p.EntityID(), tr.Subject)
		assert.Equal(t, now, tr.Timestamp)
	}

	other, err := NewTypeChangePayload(testChange(), now)
	require.NoError(t, err)
	assert.NotEqual(t, p.EntityID(), other.EntityID(), "every event gets its own id")
}

func TestNewTypeChangePayload_RequiresInstances(t *testing.T) {
	_, err := NewTypeChangePayload(TypeChange{}, time.Now())
	assert.Error(t, err)
}

func TestTypeChangePayload_Validate(t *testing.T) {
	assert.Error(t, (&TypeChangePayload{}).Validate())
	assert.Error(t, (&TypeChangePayload{EventID: "x"}).Validate())
}

func TestPublishTypeChange(t *testing.T) {
	pub := &recordingPublisher{}
	id, err := PublishTypeChange(context.Background(), pub, testChange())
	require.NoError(t, err)

	assert.Equal(t, GraphIngestSubject, pub.subject)
	var decoded TypeChangePayload
	require.NoError(t, json.Unmarshal(pub.data, &decoded))
	assert.Equal(t, id, decoded.EntityID())
	assert.NotEmpty(t, decoded.Triples())
}

func TestPublishTypeChange_Errors(t *testing.T) {
	id, err := PublishTypeChange(context.Background(), nil, testChange())
	assert.NoError(t, err)
	assert.Empty(t, id)

	boom := errors.New("stream unavailable")
	_, err = PublishTypeChange(context.Background(), &recordingPublisher{err: boom}, testChange())
	assert.ErrorIs(t, err, boom)
}
