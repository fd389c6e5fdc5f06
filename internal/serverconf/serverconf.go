// Package serverconf loads per-server connection files.
package serverconf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tinytelemetry/mongoperf/internal/model"
)

// Ext is the extension of server connection files.
const Ext = ".yml"

// ErrNotFound is returned when no file exists for the requested server.
var ErrNotFound = errors.New("serverconf: server config not found")

// Path returns the file that holds name's configuration inside dir.
func Path(dir, name string) string {
	return filepath.Join(dir, name+Ext)
}

// Load reads <dir>/<name>.yml. Unknown keys are rejected so typos in a
// connection file surface early. When the file omits a name, the requested
// name is used.
func Load(dir, name string) (model.ServerConfig, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return model.ServerConfig{}, fmt.Errorf("serverconf: invalid server name %q", name)
	}

	path := Path(dir, name)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.ServerConfig{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return model.ServerConfig{}, fmt.Errorf("serverconf: open %s: %w", path, err)
	}
	defer f.Close()

	var cfg model.ServerConfig
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return model.ServerConfig{}, fmt.Errorf("serverconf: decode %s: %w", path, err)
	}

	if cfg.Name == "" {
		cfg.Name = name
	}
	if cfg.Port == 0 {
		cfg.Port = model.DefaultMongoPort
	}
	if cfg.AuthDB == "" {
		cfg.AuthDB = model.DefaultAuthDB
	}
	if err := Validate(cfg); err != nil {
		return model.ServerConfig{}, fmt.Errorf("serverconf: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that cfg names something to connect to.
func Validate(cfg model.ServerConfig) error {
	if cfg.RepSet != "" && cfg.RepSetHosts == "" {
		return fmt.Errorf("repset %q has no repset_hosts", cfg.RepSet)
	}
	if !cfg.IsReplicaSet() && cfg.Host == "" {
		return errors.New("host is required")
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("port %d out of range", cfg.Port)
	}
	if cfg.Auth && cfg.User == "" {
		return errors.New("auth is enabled but user is empty")
	}
	return nil
}
