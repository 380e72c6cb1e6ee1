// Package typechange provides a processor component that consumes type
// change preview requests from JetStream and publishes the results.
package typechange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/natsclient"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/semtype/definition"
	"github.com/c360studio/semtype/instance"
	"github.com/c360studio/semtype/migration"
)

// Previewer converts an instance to another definition without storing it.
type Previewer interface {
	Preview(ctx context.Context, instanceID, definitionID string) (*Preview, error)
}

// Component implements the type-change processor.
type Component struct {
	name       string
	config     Config
	natsClient *natsclient.Client
	previewer  Previewer
	logger     *slog.Logger

	// Resolved subjects from port config
	inputSubject  string
	inputStream   string
	outputSubject string

	// Lifecycle
	running   bool
	startTime time.Time
	mu        sync.RWMutex
	cancel    context.CancelFunc

	// Metrics
	requestsProcessed atomic.Int64
	requestsRejected  atomic.Int64
	previewErrors     atomic.Int64
	publishErrors     atomic.Int64
	lastActivityMu    sync.RWMutex
	lastActivity      time.Time
}

// NewComponent creates a new type-change processor answering requests with
// previewer.
func NewComponent(rawConfig json.RawMessage, deps component.Dependencies, previewer Previewer) (*Component, error) {
	if previewer == nil {
		return nil, fmt.Errorf("previewer is required")
	}

	config := DefaultConfig()
	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &config); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}
	if config.Ports == nil {
		config.Ports = DefaultConfig().Ports
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Component{
		name:          "type-change",
		config:        config,
		natsClient:    deps.NATSClient,
		previewer:     previewer,
		logger:        deps.GetLogger(),
		inputSubject:  config.Ports.Inputs[0].Subject,
		inputStream:   config.Ports.Inputs[0].StreamName,
		outputSubject: config.Ports.Outputs[0].Subject,
	}, nil
}

// Initialize prepares the component.
func (c *Component) Initialize() error {
	return nil
}

// Start begins consuming type change requests.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("component already running")
	}
	if c.natsClient == nil {
		c.mu.Unlock()
		return fmt.Errorf("NATS client required")
	}

	c.running = true
	c.startTime = time.Now()

	consumeCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	consumerCfg := natsclient.StreamConsumerConfig{
		StreamName:    c.inputStream,
		ConsumerName:  c.config.GetConsumerName(),
		FilterSubject: c.inputSubject,
		DeliverPolicy: "new",
		AckPolicy:     "explicit",
		MaxDeliver:    3,
		AckWait:       30 * time.Second,
	}

	err := c.natsClient.ConsumeStreamWithConfig(consumeCtx, consumerCfg, c.handleMessage)
	if err != nil {
		c.mu.Lock()
		c.running = false
		c.cancel = nil
		c.mu.Unlock()
		cancel()
		return fmt.Errorf("start consumer: %w", err)
	}

	c.logger.Info("type-change started",
		"input", c.inputSubject,
		"output", c.outputSubject)

	return nil
}

// handleMessage answers a single request. Requests that can never succeed
// are answered and acknowledged; other failures are redelivered.
func (c *Component) handleMessage(ctx context.Context, msg jetstream.Msg) {
	result, err := c.process(ctx, msg.Data())
	if err != nil {
		c.logger.Warn("Failed to preview type change",
			"subject", msg.Subject(),
			"error", err)
		_ = msg.Nak()
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn("Failed to marshal type change result", "error", err)
		_ = msg.Term()
		return
	}

	js, err := c.natsClient.JetStream()
	if err != nil {
		c.logger.Warn("Failed to get JetStream for type change result", "error", err)
		c.publishErrors.Add(1)
		_ = msg.Nak()
		return
	}
	if _, err := js.Publish(ctx, c.outputSubject, data); err != nil {
		c.logger.Warn("Failed to publish type change result",
			"subject", c.outputSubject,
			"error", err)
		c.publishErrors.Add(1)
		_ = msg.Nak()
		return
	}

	_ = msg.Ack()
	c.updateLastActivity()
}

// process turns a request into a result. A returned error means the request
// should be retried.
func (c *Component) process(ctx context.Context, data []byte) (*Result, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		c.requestsRejected.Add(1)
		return &Result{Rejected: true, Error: fmt.Sprintf("invalid request: %v", err)}, nil
	}

	result := &Result{
		RequestID:    req.RequestID,
		InstanceID:   req.InstanceID,
		DefinitionID: req.DefinitionID,
	}
	if err := req.Validate(); err != nil {
		c.requestsRejected.Add(1)
		result.Rejected = true
		result.Error = err.Error()
		return result, nil
	}

	preview, err := c.previewer.Preview(ctx, req.InstanceID, req.DefinitionID)
	switch {
	case isRejection(err):
		c.requestsRejected.Add(1)
		result.Rejected = true
		result.Error = err.Error()
		c.logger.Debug("Rejected type change",
			"instance", req.InstanceID,
			"definition", req.DefinitionID,
			"error", err)
		return result, nil
	case err != nil:
		c.previewErrors.Add(1)
		return nil, err
	}

	c.requestsProcessed.Add(1)
	result.Preview = preview
	return result, nil
}

func isRejection(err error) bool {
	return errors.Is(err, migration.ErrInvalidArgument) ||
		errors.Is(err, instance.ErrNotFound) ||
		errors.Is(err, definition.ErrNotFound)
}

// Stop gracefully stops the component.
func (c *Component) Stop(_ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil
	}

	if c.cancel != nil {
		c.cancel()
	}

	c.running = false
	c.logger.Info("type-change stopped",
		"requests_processed", c.requestsProcessed.Load(),
		"requests_rejected", c.requestsRejected.Load(),
		"preview_errors", c.previewErrors.Load(),
		"publish_errors", c.publishErrors.Load())

	return nil
}

// Meta returns component metadata.
func (c *Component) Meta() component.Metadata {
	return component.Metadata{
		Name:        c.name,
		Type:        "processor",
		Description: "Previews instance type changes requested over JetStream",
		Version:     "1.0.0",
	}
}

// InputPorts returns configured input port definitions.
func (c *Component) InputPorts() []component.Port {
	if c.config.Ports == nil {
		return []component.Port{}
	}

	ports := make([]component.Port, len(c.config.Ports.Inputs))
	for i, portDef := range c.config.Ports.Inputs {
		ports[i] = buildPort(portDef, component.DirectionInput)
	}
	return ports
}

// OutputPorts returns configured output port definitions.
func (c *Component) OutputPorts() []component.Port {
	if c.config.Ports == nil {
		return []component.Port{}
	}

	ports := make([]component.Port, len(c.config.Ports.Outputs))
	for i, portDef := range c.config.Ports.Outputs {
		ports[i] = buildPort(portDef, component.DirectionOutput)
	}
	return ports
}

// buildPort creates a component.Port from a PortDefinition, using JetStreamPort
// for jetstream-type ports and NATSPort for core NATS ports.
func buildPort(portDef component.PortDefinition, direction component.Direction) component.Port {
	port := component.Port{
		Name:        portDef.Name,
		Direction:   direction,
		Required:    portDef.Required,
		Description: portDef.Description,
	}
	if portDef.Type == "jetstream" {
		port.Config = component.JetStreamPort{
			StreamName: portDef.StreamName,
			Subjects:   []string{portDef.Subject},
		}
	} else {
		port.Config = component.NATSPort{
			Subject: portDef.Subject,
		}
	}
	return port
}

// ConfigSchema returns the configuration schema.
func (c *Component) ConfigSchema() component.ConfigSchema {
	return typeChangeSchema
}

// Health returns the current health status.
func (c *Component) Health() component.HealthStatus {
	c.mu.RLock()
	running := c.running
	startTime := c.startTime
	c.mu.RUnlock()

	errorCount := int(c.previewErrors.Load() + c.publishErrors.Load())

	status := "stopped"
	if running {
		status = "running"
	}

	return component.HealthStatus{
		Healthy:    running,
		LastCheck:  time.Now(),
		ErrorCount: errorCount,
		Uptime:     time.Since(startTime),
		Status:     status,
	}
}

// DataFlow returns current data flow metrics.
func (c *Component) DataFlow() component.FlowMetrics {
	return component.FlowMetrics{
		LastActivity: c.getLastActivity(),
	}
}

func (c *Component) updateLastActivity() {
	c.lastActivityMu.Lock()
	c.lastActivity = time.Now()
	c.lastActivityMu.Unlock()
}

func (c *Component) getLastActivity() time.Time {
	c.lastActivityMu.RLock()
	defer c.lastActivityMu.RUnlock()
	return c.lastActivity
}
