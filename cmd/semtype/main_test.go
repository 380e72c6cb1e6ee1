package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semtype/config"
	"github.com/c360studio/semtype/instance"
	"github.com/c360studio/semtype/migration"
	typechange "github.com/c360studio/semtype/processor/type-change"
	"github.com/c360studio/semtype/vocabulary/emf"
)

var testConfig = filepath.Join("testdata", "semtype.yaml")

// execute runs the CLI against the fixture world and returns its output.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvNATSURL, "")

	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetArgs(append([]string{"--config", testConfig}, args...))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.Execute()
	return out.String(), err
}

func TestPreviewCommand(t *testing.T) {
	out, err := execute(t, "", "preview", "case-1", "projectDef")
	require.NoError(t, err)

	var result typechange.Preview
	require.NoError(t, json.Unmarshal([]byte(out), &result))

	migrated := result.Instance
	require.NotNil(t, migrated)
	assert.False(t, result.Unchanged)
	assert.Equal(t, "case-1", migrated.ID)
	assert.Equal(t, "projectDef", migrated.Identifier)
	assert.Equal(t, int64(3), migrated.Revision)
	assert.Equal(t, emf.ClassProject, migrated.Type.ID())

	assert.Equal(t, "Quarterly audit", migrated.GetString("title"))
	assert.Equal(t, []any{"doc-1"}, migrated.Properties["children"])
	assert.Equal(t, "APPROVED", migrated.GetString(instance.PropertyStatus))
	assert.Equal(t, "projectDef", migrated.GetString(instance.PropertyType))
	assert.Equal(t, emf.ClassProject, migrated.GetString(instance.PropertySemanticType))
	assert.Equal(t, "(Project) Quarterly audit", migrated.GetString(instance.PropertyHeader))
	assert.NotContains(t, migrated.Properties, "caseNumber")
	assert.NotContains(t, migrated.Properties, instance.PropertyHasTemplate)

	assert.Equal(t, []string{"budget"}, result.Dropped)
	assert.Equal(t, []string{"doc-1"}, result.Affected)
	assert.Empty(t, result.Event)
}

func TestPreviewCommand_SameDefinition(t *testing.T) {
	out, err := execute(t, "", "preview", "case-1", "caseDef")
	require.NoError(t, err)

	var result typechange.Preview
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result.Unchanged)
	assert.Equal(t, "caseDef", result.Instance.Identifier)
	assert.Equal(t, "C-17", result.Instance.GetString("caseNumber"))
}

func TestPreviewCommand_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{
			name:    "target outside the allowed super type",
			args:    []string{"case-1", "documentDef"},
			wantErr: migration.ErrInvalidArgument,
		},
		{
			name:    "abstract target",
			args:    []string{"case-1", "activityDef"},
			wantErr: migration.ErrInvalidArgument,
		},
		{
			name:    "unknown instance",
			args:    []string{"missing", "projectDef"},
			wantErr: instance.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "", append([]string{"preview"}, tt.args...)...)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPreviewCommand_RequiresTwoArgs(t *testing.T) {
	_, err := execute(t, "", "preview", "case-1")
	assert.Error(t, err)
}

func TestAffectedCommand(t *testing.T) {
	out, err := execute(t, "", "affected", "case-1", "emf:Project")
	require.NoError(t, err)

	var result AffectedResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, emf.ClassProject, result.NewType)
	assert.Equal(t, 1, result.Count)
	require.Len(t, result.Instances, 1)

	doc := result.Instances[0]
	assert.Equal(t, "doc-1", doc.ID)
	assert.Equal(t, "case-1", doc.GetString("partOf"))
	assert.NotContains(t, doc.Properties, "about", "relation with an incompatible range is pruned")
}

func TestAffectedCommand_Count(t *testing.T) {
	tests := []struct {
		newType string
		want    int
	}{
		{newType: "emf:Case", want: 2},
		{newType: "emf:Project", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.newType, func(t *testing.T) {
			out, err := execute(t, "", "affected", "--count", "case-1", tt.newType)
			require.NoError(t, err)

			var result AffectedResult
			require.NoError(t, json.Unmarshal([]byte(out), &result))
			assert.Equal(t, tt.want, result.Count)
			assert.Empty(t, result.Instances)
		})
	}
}

func TestSupertypesCommand(t *testing.T) {
	tests := []struct {
		class string
		want  []string
	}{
		{class: "emf:Case", want: []string{emf.ClassActivity, emf.ClassEvent, emf.ClassHappening, emf.ClassEntity}},
		{class: "emf:Image", want: []string{emf.ClassInformationResource, emf.ClassObject, emf.ClassEntity}},
		{class: "emf:Document", want: []string{emf.ClassInformationResource, emf.ClassObject, emf.ClassEntity}},
	}

	for _, tt := range tests {
		t.Run(tt.class, func(t *testing.T) {
			out, err := execute(t, "", "supertypes", tt.class)
			require.NoError(t, err)
			assert.Equal(t, strings.Join(tt.want, "\n")+"\n", out)
		})
	}
}

func TestNATSCommands_RequireURL(t *testing.T) {
	for _, name := range []string{"import", "serve"} {
		t.Run(name, func(t *testing.T) {
			_, err := execute(t, "", name)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "nats.url")
		})
	}
}

func TestShellCommand(t *testing.T) {
	input := strings.Join([]string{
		"help",
		"supertypes emf:Image",
		"skipped",
		"count case-1 emf:Case",
		"bogus",
		"preview case-1",
		"quit",
		"supertypes emf:Case",
	}, "\n")

	out, err := execute(t, input, "shell")
	require.NoError(t, err)

	assert.Contains(t, out, "Available commands:")
	assert.Contains(t, out, emf.ClassInformationResource)
	assert.Contains(t, out, emf.ClassMedia)
	assert.Contains(t, out, `"count": 2`)
	assert.Contains(t, out, `Error: unknown command "bogus"`)
	assert.Contains(t, out, "Error: usage: preview <instance> <definition>")
	assert.NotContains(t, out, emf.ClassActivity, "commands after quit are not run")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "semtype version 0.1.0 (build: dev)\n", out)
}

func TestFixturesFlagOverridesConfig(t *testing.T) {
	_, err := execute(t, "", "--fixtures", t.TempDir(), "supertypes", "emf:Case")
	require.Error(t, err, "empty fixture directory has no classes")
}

func TestAppMetrics(t *testing.T) {
	t.Setenv(config.EnvNATSURL, "")
	cfg, err := config.LoadFromFile(testConfig)
	require.NoError(t, err)

	app, err := NewApp(cfg, nil)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer app.Shutdown(shutdownTimeout)

	_, err = app.Preview(ctx, "case-1", "projectDef")
	require.NoError(t, err)
	_, err = app.Preview(ctx, "case-1", "documentDef")
	require.Error(t, err)

	assert.Equal(t, 1.0, counterValue(t, app, "semtype_migration_requests_total", migration.OutcomeMigrated))
	assert.Equal(t, 1.0, counterValue(t, app, "semtype_migration_requests_total", migration.OutcomeRejected))
	assert.Equal(t, 1.0, counterValue(t, app, "semtype_migration_dropped_fields_total", string(migration.DropNoSourceProperty)))
}

func TestAppPreview_ConcurrentDropLists(t *testing.T) {
	t.Setenv(config.EnvNATSURL, "")
	cfg, err := config.LoadFromFile(testConfig)
	require.NoError(t, err)

	app, err := NewApp(cfg, nil)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer app.Shutdown(shutdownTimeout)

	const calls = 16
	results := make([]*typechange.Preview, calls)
	errs := make([]error, calls)
	var wg sync.WaitGroup
	for i := range calls {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = app.Preview(ctx, "case-1", "projectDef")
		}(i)
	}
	wg.Wait()

	for i := range calls {
		require.NoError(t, errs[i])
		assert.Equal(t, []string{"budget"}, results[i].Dropped)
	}
}

func counterValue(t *testing.T, app *App, name, label string) float64 {
	t.Helper()
	families, err := app.registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == label {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
