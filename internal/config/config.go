// Package config loads the run configuration of orderdedup.
//
// Sources are layered lowest to highest: Default, then a YAML or CUE file,
// then command-line flags applied by the caller. The result is validated
// against the embedded CUE schema before use.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/orderdedup/internal/dedup"
	"github.com/roach88/orderdedup/internal/pipeline"
)

//go:embed schema.cue
var schemaSource []byte

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Config is the full configuration of one invocation.
type Config struct {
	Store       Store     `yaml:"store" json:"store"`
	Mode        string    `yaml:"mode" json:"mode"`
	Key         string    `yaml:"key" json:"key"`
	Branches    []string  `yaml:"branches,omitempty" json:"branches,omitempty"`
	Migration   Migration `yaml:"migration" json:"migration"`
	MetricsFile string    `yaml:"metrics_file,omitempty" json:"metrics_file,omitempty"`
	LogLevel    string    `yaml:"log_level" json:"log_level"`
}

// Store selects and addresses the record store.
type Store struct {
	Driver string `yaml:"driver" json:"driver"`

	// DSN is a file path for sqlite and a connection URI for mongo.
	DSN        string `yaml:"dsn" json:"dsn"`
	Database   string `yaml:"database" json:"database"`
	Collection string `yaml:"collection" json:"collection"`
}

// Migration holds the branch migration parameters.
type Migration struct {
	From []string `yaml:"from,omitempty" json:"from,omitempty"`
	To   string   `yaml:"to" json:"to"`
	Name string   `yaml:"name" json:"name"`
}

// Default returns the built-in configuration. The mongo database and
// collection names match the production collection.
func Default() Config {
	return Config{
		Store: Store{
			Driver:     DriverSQLite,
			DSN:        "orderdedup.db",
			Database:   "vendas_db",
			Collection: "pedidos",
		},
		Mode: string(dedup.ModeSimulate),
		Key:  dedup.Normalized.Name(),
		Migration: Migration{
			From: []string{"SS", "SZM"},
			To:   "JF",
			Name: "Juiz de Fora",
		},
		LogLevel: "info",
	}
}

// ValidationError reports a configuration rejected by the schema.
type ValidationError struct {
	Source  string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("invalid config %s: %s", e.Source, e.Message)
	}
	return "invalid config: " + e.Message
}

// Load reads path over Default and validates the result. An empty path
// returns the validated defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = decodeYAML(data, &cfg)
	case ".cue":
		err = decodeCUE(data, path, &cfg)
	default:
		return Config{}, &ValidationError{Source: path, Message: "unsupported extension (want .yaml, .yml or .cue)"}
	}
	if err != nil {
		return Config{}, &ValidationError{Source: path, Message: err.Error()}
	}

	if err := cfg.Validate(); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			ve.Source = path
		}
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("parse YAML: %w", err)
	}
	return nil
}

// decodeCUE evaluates a CUE file and overlays its concrete fields. Fields
// the file leaves out keep their defaults.
func decodeCUE(data []byte, path string, cfg *Config) error {
	v := cuecontext.New().CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return fmt.Errorf("compile CUE: %s", cueMessage(err))
	}
	js, err := v.MarshalJSON()
	if err != nil {
		return fmt.Errorf("evaluate CUE: %s", cueMessage(err))
	}
	dec := json.NewDecoder(bytes.NewReader(js))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("decode CUE: %w", err)
	}
	return nil
}

// Validate checks c against the embedded schema and the key registry.
func (c Config) Validate() error {
	js, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	value := ctx.CompileBytes(js)
	def := schema.LookupPath(cue.ParsePath("#Config"))
	if err := def.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Message: cueMessage(err)}
	}

	if _, err := dedup.LookupKey(c.Key); err != nil {
		return &ValidationError{Message: err.Error()}
	}
	return nil
}

// RunMode parses the configured mode.
func (c Config) RunMode() (dedup.Mode, error) {
	return dedup.ParseMode(c.Mode)
}

// ConsolidateConfig builds the executor configuration for a purge. A
// non-empty branch list restricts candidates to those exact branch codes.
func (c Config) ConsolidateConfig() (dedup.ConsolidateConfig, error) {
	key, err := dedup.LookupKey(c.Key)
	if err != nil {
		return dedup.ConsolidateConfig{}, err
	}
	mode, err := c.RunMode()
	if err != nil {
		return dedup.ConsolidateConfig{}, err
	}
	cc := dedup.ConsolidateConfig{Key: key, Mode: mode}
	if len(c.Branches) > 0 {
		cc.Filter = pipeline.In{Field: pipeline.FieldBranchCode, Values: c.Branches}
	}
	return cc, nil
}

// MigrationConfig builds the executor configuration for a branch migration.
func (c Config) MigrationConfig() (dedup.MigrationConfig, error) {
	mode, err := c.RunMode()
	if err != nil {
		return dedup.MigrationConfig{}, err
	}
	return dedup.MigrationConfig{
		LegacyCodes: c.Migration.From,
		TargetCode:  c.Migration.To,
		TargetName:  c.Migration.Name,
		Mode:        mode,
	}, nil
}

func cueMessage(err error) string {
	return strings.TrimSpace(cueerrors.Details(err, nil))
}
