package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/natsclient"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360studio/semtype/codelist"
	"github.com/c360studio/semtype/config"
	"github.com/c360studio/semtype/definition"
	"github.com/c360studio/semtype/graph"
	"github.com/c360studio/semtype/instance"
	"github.com/c360studio/semtype/migration"
	typechange "github.com/c360studio/semtype/processor/type-change"
	"github.com/c360studio/semtype/search"
	"github.com/c360studio/semtype/semantic"
	"github.com/c360studio/semtype/storage"
)

// Fixture file names below fixtures.path.
const (
	classesFile     = "classes.yaml"
	codelistsFile   = "codelists.yaml"
	instancesFile   = "instances.yaml"
	definitionsDir  = "definitions"
	shutdownTimeout = 5 * time.Second
)

// instanceSource is what the coordinator and the referrer search read
// instances from. Both the fixture store and the KV store implement it.
type instanceSource interface {
	instance.Loader
	instance.BulkLoader
	Scan(ctx context.Context) iter.Seq2[*instance.Instance, error]
}

// AffectedResult lists the referrers kept by a type change.
type AffectedResult struct {
	Instance  string               `json:"instance"`
	NewType   string               `json:"new_type"`
	Count     int                  `json:"count"`
	Instances []*instance.Instance `json:"instances,omitempty"`
}

// App is the main application that wires together all components.
type App struct {
	cfg        *config.Config
	configPath string
	logger     *slog.Logger

	skipped  *config.SkippedClasses
	registry *prometheus.Registry
	metrics  *migration.Metrics

	// Model
	classes     *semantic.Registry
	definitions *definition.Registry
	codelists   *codelist.Registry
	fixtures    *instance.MemoryStore

	// NATS
	natsClient *natsclient.Client
	store      *storage.Store

	source      instanceSource
	coordinator *migration.Coordinator
}

// NewApp creates a new application instance.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	registry := prometheus.NewRegistry()
	metrics, err := migration.NewMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	return &App{
		cfg:      cfg,
		logger:   logger,
		skipped:  config.NewSkippedClasses(cfg.Migration.SkippedClasses...),
		registry: registry,
		metrics:  metrics,
	}, nil
}

// Start loads the model and connects the instance source.
func (a *App) Start(ctx context.Context) error {
	if err := a.loadFixtures(); err != nil {
		return err
	}

	a.source = a.fixtures
	if a.cfg.NATS.URL != "" {
		if err := a.startNATS(ctx); err != nil {
			return fmt.Errorf("start NATS: %w", err)
		}
		a.source = a.store
	}

	coordinator, err := migration.NewCoordinator(migration.Dependencies{
		Instances:   a.source,
		BulkLoader:  a.source,
		Definitions: a.definitions,
		Semantics:   a.classes,
		CodeLists:   a.codelists,
		Search:      search.NewReferrerSearch(a.source),
		Decorator:   instance.NewHeaderDecorator(a.classes),
	},
		migration.WithLogger(a.logger),
		migration.WithMetrics(a.metrics),
		migration.WithSkippedClasses(a.skipped.Snapshot),
		migration.WithInitialState(a.cfg.Migration.InitialState),
		migration.WithChangeTypeOperation(a.cfg.Migration.ChangeTypeOperation),
	)
	if err != nil {
		return err
	}
	a.coordinator = coordinator
	return nil
}

func (a *App) loadFixtures() error {
	dir := a.cfg.Fixtures.Path
	if dir == "" {
		return errors.New("fixtures.path is required")
	}

	classes, err := semantic.LoadFile(filepath.Join(dir, classesFile))
	if err != nil {
		return err
	}
	definitions, err := definition.LoadDir(filepath.Join(dir, definitionsDir), definition.DefaultPattern)
	if err != nil {
		return err
	}
	codelists, err := codelist.LoadFile(filepath.Join(dir, codelistsFile))
	if err != nil {
		return err
	}

	fixtures, err := instance.LoadFile(filepath.Join(dir, instancesFile))
	if errors.Is(err, fs.ErrNotExist) {
		fixtures, err = instance.NewMemoryStore(), nil
	}
	if err != nil {
		return err
	}

	a.classes = classes
	a.definitions = definitions
	a.codelists = codelists
	a.fixtures = fixtures
	a.logger.Debug("Loaded fixtures",
		"path", dir,
		"definitions", len(definitions.IDs()))
	return nil
}

func (a *App) startNATS(ctx context.Context) error {
	client, err := connectToNATS(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}
	a.natsClient = client

	js, err := client.JetStream()
	if err != nil {
		return fmt.Errorf("get JetStream: %w", err)
	}
	store, err := storage.NewStore(ctx, js, a.cfg.NATS.Bucket, a.logger)
	if err != nil {
		return err
	}
	a.store = store
	return nil
}

// Shutdown closes the NATS connection, if any.
func (a *App) Shutdown(timeout time.Duration) {
	if a.natsClient == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := a.natsClient.Close(ctx); err != nil {
		a.logger.Warn("Failed to close NATS connection", "error", err)
	}
}

// Preview converts an instance to another definition without storing it.
// The result lists the target fields left empty and the referrers kept by
// the change. With nats.publish set, the change is published to the graph.
func (a *App) Preview(ctx context.Context, instanceID, definitionID string) (*typechange.Preview, error) {
	previous, err := a.source.Load(ctx, instanceID)
	if err != nil {
		return nil, err
	}

	var dropped []string
	dropCtx := migration.ContextWithDropFunc(ctx, func(_ *definition.Definition, field definition.PropertyDeclaration, _ migration.DropReason) {
		dropped = append(dropped, field.Name)
	})
	migrated, err := a.coordinator.GetInstanceAs(dropCtx, instanceID, definitionID)
	if err != nil {
		return nil, err
	}
	if migrated.Identifier == previous.Identifier {
		return &typechange.Preview{Instance: migrated, Unchanged: true}, nil
	}

	result := &typechange.Preview{Instance: migrated}
	for _, name := range dropped {
		if !migrated.IsValueNotNil(name) {
			result.Dropped = append(result.Dropped, name)
		}
	}
	slices.Sort(result.Dropped)
	result.Dropped = slices.Compact(result.Dropped)

	affected, err := a.coordinator.AffectedInstances(ctx, instanceID, migrated.Type)
	if err != nil {
		return nil, err
	}
	for _, inst := range affected {
		result.Affected = append(result.Affected, inst.ID)
	}

	if a.cfg.NATS.Publish && a.natsClient != nil {
		eventID, err := graph.PublishTypeChange(ctx, a.natsClient, graph.TypeChange{
			Previous: previous,
			Migrated: migrated,
			Dropped:  result.Dropped,
			Affected: result.Affected,
		})
		if err != nil {
			return nil, err
		}
		result.Event = eventID
		a.logger.Info("Published type change", "instance", instanceID, "event", eventID)
	}
	return result, nil
}

// Affected lists, or only counts, the referrers of an instance that keep a
// valid relation to it when it changes its type to newType.
func (a *App) Affected(ctx context.Context, instanceID, newType string, countOnly bool) (*AffectedResult, error) {
	t := instance.InstanceType(newType)
	result := &AffectedResult{Instance: instanceID, NewType: t.ID()}
	if countOnly {
		n, err := a.coordinator.CountAffectedInstances(ctx, instanceID, t)
		if err != nil {
			return nil, err
		}
		result.Count = n
		return result, nil
	}

	affected, err := a.coordinator.AffectedInstances(ctx, instanceID, t)
	if err != nil {
		return nil, err
	}
	result.Count = len(affected)
	result.Instances = affected
	return result, nil
}

// SuperTypes returns the allowed super types of a class.
func (a *App) SuperTypes(ctx context.Context, classID string) ([]string, error) {
	supers, err := a.coordinator.AllowedSuperTypes(ctx, classID)
	if err != nil {
		return nil, err
	}
	result := make([]string, 0, len(supers))
	for _, s := range supers {
		result = append(result, s.ID())
	}
	return result, nil
}

// Import copies the fixture instances into the KV store.
func (a *App) Import(ctx context.Context) (int, error) {
	if a.store == nil {
		return 0, errors.New("import requires nats.url")
	}
	n, err := a.store.Import(ctx, a.fixtures.Scan(ctx))
	if err != nil {
		return n, err
	}
	a.logger.Info("Imported instances", "count", n, "bucket", a.cfg.NATS.Bucket)
	return n, nil
}

// Serve answers type change requests from JetStream until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	if a.natsClient == nil {
		return errors.New("serve requires nats.url")
	}

	js, err := a.natsClient.JetStream()
	if err != nil {
		return fmt.Errorf("get JetStream: %w", err)
	}
	if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     typechange.DefaultStreamName,
		Subjects: []string{typechange.DefaultRequestSubject, typechange.DefaultResultSubject},
	}); err != nil {
		return fmt.Errorf("create stream %s: %w", typechange.DefaultStreamName, err)
	}

	processor, err := typechange.NewComponent(nil, component.Dependencies{
		NATSClient: a.natsClient,
		Logger:     a.logger,
	}, a)
	if err != nil {
		return err
	}
	if err := processor.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	return processor.Stop(shutdownTimeout)
}

// connectToNATS connects to the configured server and waits for the
// connection to be established.
func connectToNATS(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*natsclient.Client, error) {
	url := cfg.NATS.URL
	logger.Info("Connecting to NATS", "url", url)

	client, err := natsclient.NewClient(url,
		natsclient.WithName(appName),
		natsclient.WithMaxReconnects(-1),
		natsclient.WithReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	if err := client.Connect(ctx); err != nil {
		return nil, wrapNATSError(err, url)
	}

	timeout := cfg.NATS.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	connCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.WaitForConnection(connCtx); err != nil {
		return nil, wrapNATSError(err, url)
	}

	logger.Info("Connected to NATS", "url", url)
	return client, nil
}

// wrapNATSError adds a hint for the common connection failures.
func wrapNATSError(err error, url string) error {
	errStr := err.Error()
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no servers available") {
		return fmt.Errorf("NATS not reachable at %s (unset nats.url to work on fixtures only): %w", url, err)
	}
	return fmt.Errorf("connect to NATS at %s: %w", url, err)
}
