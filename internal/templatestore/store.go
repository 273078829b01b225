// Package templatestore persists plugin templates and pre-configured
// pipeline templates in SQLite.
package templatestore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/specialistvlad/pipelinestudio/internal/pipeline"
)

//go:embed schema.sql
var schema string

// ErrTemplateNotFound is returned when no template matches the key.
var ErrTemplateNotFound = errors.New("template not found")

// PipelineTemplate is a named, pre-configured pipeline.
type PipelineTemplate struct {
	Namespace    string
	TemplateType string
	Name         string
	Description  string
	// Config is the raw export document.
	Config []byte
}

// Store is safe for concurrent use.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at dsn and applies the schema. dsn is
// a file path or any DSN understood by the sqlite driver.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening template database: %w", err)
	}
	// One connection keeps in-memory databases shared and serializes writes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying template schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutPluginTemplate inserts or replaces a plugin template.
func (s *Store) PutPluginTemplate(ctx context.Context, t pipeline.PluginTemplate) error {
	if t.TemplateName == "" || t.PluginName == "" {
		return fmt.Errorf("plugin template needs a template name and a plugin name")
	}
	if !t.PluginType.Valid() {
		return fmt.Errorf("plugin template %q: unknown plugin type %q", t.TemplateName, t.PluginType)
	}
	props, err := json.Marshal(t.Clone().Properties)
	if err != nil {
		return fmt.Errorf("encoding properties of %q: %w", t.TemplateName, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO plugin_templates (
			namespace, template_type, plugin_type, template_name, plugin_name,
			artifact_name, artifact_version, artifact_scope,
			properties, input_schema, output_schema, locked, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (namespace, template_type, plugin_type, template_name) DO UPDATE SET
			plugin_name = excluded.plugin_name,
			artifact_name = excluded.artifact_name,
			artifact_version = excluded.artifact_version,
			artifact_scope = excluded.artifact_scope,
			properties = excluded.properties,
			input_schema = excluded.input_schema,
			output_schema = excluded.output_schema,
			locked = excluded.locked,
			updated_at = excluded.updated_at`,
		t.Namespace, t.TemplateType, string(t.PluginType), t.TemplateName, t.PluginName,
		t.Artifact.Name, t.Artifact.Version, t.Artifact.Scope,
		string(props), t.InputSchema, t.OutputSchema, t.Lock, s.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("saving plugin template %q: %w", t.TemplateName, err)
	}
	return nil
}

const pluginTemplateColumns = `namespace, template_type, plugin_type, template_name, plugin_name,
	artifact_name, artifact_version, artifact_scope,
	properties, input_schema, output_schema, locked`

type scanner interface {
	Scan(dest ...any) error
}

func scanPluginTemplate(row scanner) (pipeline.PluginTemplate, error) {
	var (
		t          pipeline.PluginTemplate
		pluginType string
		props      string
	)
	err := row.Scan(
		&t.Namespace, &t.TemplateType, &pluginType, &t.TemplateName, &t.PluginName,
		&t.Artifact.Name, &t.Artifact.Version, &t.Artifact.Scope,
		&props, &t.InputSchema, &t.OutputSchema, &t.Lock,
	)
	if err != nil {
		return pipeline.PluginTemplate{}, err
	}
	t.PluginType = pipeline.PluginType(pluginType)
	if err := json.Unmarshal([]byte(props), &t.Properties); err != nil {
		return pipeline.PluginTemplate{}, fmt.Errorf("decoding properties of %q: %w", t.TemplateName, err)
	}
	if t.Properties == nil {
		t.Properties = map[string]any{}
	}
	return t, nil
}

// GetPluginTemplate loads one plugin template.
func (s *Store) GetPluginTemplate(ctx context.Context, namespace, templateType string, pluginType pipeline.PluginType, name string) (pipeline.PluginTemplate, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+pluginTemplateColumns+` FROM plugin_templates
		WHERE namespace = ? AND template_type = ? AND plugin_type = ? AND template_name = ?`,
		namespace, templateType, string(pluginType), name,
	)
	t, err := scanPluginTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return pipeline.PluginTemplate{}, fmt.Errorf("%w: %s plugin template %q", ErrTemplateNotFound, pluginType, name)
	}
	if err != nil {
		return pipeline.PluginTemplate{}, err
	}
	return t, nil
}

// DeletePluginTemplate removes one plugin template.
func (s *Store) DeletePluginTemplate(ctx context.Context, namespace, templateType string, pluginType pipeline.PluginType, name string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM plugin_templates
		WHERE namespace = ? AND template_type = ? AND plugin_type = ? AND template_name = ?`,
		namespace, templateType, string(pluginType), name,
	)
	if err != nil {
		return fmt.Errorf("deleting plugin template %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s plugin template %q", ErrTemplateNotFound, pluginType, name)
	}
	return nil
}

// ListPluginTemplates lists the plugin templates of a pipeline artifact
// ordered by name. An empty pluginType lists every type.
func (s *Store) ListPluginTemplates(ctx context.Context, namespace, templateType string, pluginType pipeline.PluginType) ([]pipeline.PluginTemplate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+pluginTemplateColumns+` FROM plugin_templates
		WHERE namespace = ? AND template_type = ? AND (? = '' OR plugin_type = ?)
		ORDER BY plugin_type, template_name`,
		namespace, templateType, string(pluginType), string(pluginType),
	)
	if err != nil {
		return nil, fmt.Errorf("listing plugin templates: %w", err)
	}
	defer rows.Close()

	var out []pipeline.PluginTemplate
	for rows.Next() {
		t, err := scanPluginTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// PutPipelineTemplate inserts or replaces a pipeline template.
func (s *Store) PutPipelineTemplate(ctx context.Context, t PipelineTemplate) error {
	if t.Name == "" {
		return fmt.Errorf("pipeline template needs a name")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pipeline_templates (namespace, template_type, name, description, config, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (namespace, template_type, name) DO UPDATE SET
			description = excluded.description,
			config = excluded.config,
			updated_at = excluded.updated_at`,
		t.Namespace, t.TemplateType, t.Name, t.Description, string(t.Config), s.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("saving pipeline template %q: %w", t.Name, err)
	}
	return nil
}

// GetPipelineTemplate loads one pipeline template.
func (s *Store) GetPipelineTemplate(ctx context.Context, namespace, templateType, name string) (PipelineTemplate, error) {
	t := PipelineTemplate{Namespace: namespace, TemplateType: templateType, Name: name}
	var config string
	err := s.db.QueryRowContext(ctx,
		`SELECT description, config FROM pipeline_templates
		WHERE namespace = ? AND template_type = ? AND name = ?`,
		namespace, templateType, name,
	).Scan(&t.Description, &config)
	if errors.Is(err, sql.ErrNoRows) {
		return PipelineTemplate{}, fmt.Errorf("%w: pipeline template %q", ErrTemplateNotFound, name)
	}
	if err != nil {
		return PipelineTemplate{}, err
	}
	t.Config = []byte(config)
	return t, nil
}

// ListPipelineTemplates lists the pipeline templates of a pipeline artifact
// ordered by name.
func (s *Store) ListPipelineTemplates(ctx context.Context, namespace, templateType string) ([]PipelineTemplate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, description, config FROM pipeline_templates
		WHERE namespace = ? AND template_type = ?
		ORDER BY name`,
		namespace, templateType,
	)
	if err != nil {
		return nil, fmt.Errorf("listing pipeline templates: %w", err)
	}
	defer rows.Close()

	var out []PipelineTemplate
	for rows.Next() {
		t := PipelineTemplate{Namespace: namespace, TemplateType: templateType}
		var config string
		if err := rows.Scan(&t.Name, &t.Description, &config); err != nil {
			return nil, err
		}
		t.Config = []byte(config)
		out = append(out, t)
	}
	return out, rows.Err()
}
