package typechange

import (
	"fmt"
	"reflect"

	"github.com/c360studio/semstreams/component"

	"github.com/c360studio/semtype/graph"
)

// Default subjects and stream.
const (
	DefaultStreamName     = "SEMTYPE"
	DefaultRequestSubject = "semtype.typechange.request"
	DefaultResultSubject  = "semtype.typechange.result"
)

// typeChangeSchema defines the configuration schema.
var typeChangeSchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// Config holds configuration for the type-change processor component.
type Config struct {
	Ports        *component.PortConfig `json:"ports" schema:"type:ports,description:Port configuration,category:basic"`
	ConsumerName string                `json:"consumer_name" schema:"type:string,description:Durable consumer name,category:basic,default:type-change"`
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Ports != nil {
		if len(c.Ports.Inputs) == 0 || c.Ports.Inputs[0].Subject == "" {
			return fmt.Errorf("an input port with a subject is required")
		}
		if len(c.Ports.Outputs) == 0 || c.Ports.Outputs[0].Subject == "" {
			return fmt.Errorf("an output port with a subject is required")
		}
	}
	return nil
}

// GetConsumerName returns the configured consumer name with a default fallback.
func (c *Config) GetConsumerName() string {
	if c.ConsumerName != "" {
		return c.ConsumerName
	}
	return "type-change"
}

// DefaultConfig returns the default configuration for type-change.
func DefaultConfig() Config {
	return Config{
		Ports: &component.PortConfig{
			Inputs: []component.PortDefinition{
				{
					Name:        "requests_in",
					Type:        "jetstream",
					Subject:     DefaultRequestSubject,
					StreamName:  DefaultStreamName,
					Required:    true,
					Description: "Type change preview requests",
				},
			},
			Outputs: []component.PortDefinition{
				{
					Name:        "results_out",
					Type:        "jetstream",
					Subject:     DefaultResultSubject,
					StreamName:  DefaultStreamName,
					Required:    true,
					Description: "Type change preview results",
				},
				{
					Name:        "graph_out",
					Type:        "jetstream",
					Subject:     graph.GraphIngestSubject,
					StreamName:  "GRAPH",
					Required:    false,
					Description: "Type change events for the knowledge graph",
				},
			},
		},
		ConsumerName: "type-change",
	}
}
