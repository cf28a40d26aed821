package plugin

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Prefix is the file name prefix every plugin executable carries.
const Prefix = "timelog-"

var configExts = []string{".json", ".yaml", ".yml"}

// Registry discovers plugins and resolves their configuration.
type Registry interface {
	List() ([]string, error)
	Path(name string) (string, error)
	Config(name string) (json.RawMessage, error)
}

type cachedConfig struct {
	path    string
	modTime time.Time
	config  json.RawMessage
}

// DirRegistry finds plugins in a single directory. Executables are named
// timelog-<name>; timelog-<name>.json or timelog-<name>.yaml next to them
// holds the plugin's configuration.
type DirRegistry struct {
	dir    string
	cache  *lru.Cache[string, cachedConfig]
	logger zerolog.Logger
}

// NewDirRegistry creates a registry over dir. Parsed configs are kept in an
// LRU cache of cacheSize entries and reloaded when the file changes.
func NewDirRegistry(dir string, cacheSize int, logger zerolog.Logger) (*DirRegistry, error) {
	cache, err := lru.New[string, cachedConfig](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create plugin config cache: %w", err)
	}
	return &DirRegistry{
		dir:    dir,
		cache:  cache,
		logger: logger.With().Str("component", "plugin-registry").Logger(),
	}, nil
}

// Dir returns the directory scanned for plugins.
func (r *DirRegistry) Dir() string {
	return r.dir
}

// List returns the sorted identifiers of every executable plugin. A missing
// directory yields no plugins.
func (r *DirRegistry) List() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot read plugin directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		name, ok := identifier(entry.Name())
		if !ok {
			continue
		}
		// Stat follows symlinks so linked plugins are found.
		info, err := os.Stat(filepath.Join(r.dir, entry.Name()))
		if err != nil || !info.Mode().IsRegular() || info.Mode().Perm()&0o111 == 0 {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	r.logger.Debug().Str("dir", r.dir).Strs("plugins", names).Msg("Scanned plugin directory")
	return names, nil
}

// Path returns the executable for the named plugin.
func (r *DirRegistry) Path(name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	path := filepath.Join(r.dir, Prefix+name)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: '%s' not found at %s", ErrPluginNotFound, name, path)
		}
		return "", fmt.Errorf("stat plugin %s: %w", name, err)
	}
	if !info.Mode().IsRegular() || info.Mode().Perm()&0o111 == 0 {
		return "", fmt.Errorf("%w: '%s' at %s is not executable", ErrPluginNotFound, name, path)
	}
	return path, nil
}

// Config returns the named plugin's configuration as a JSON object, or {}
// when no config file exists.
func (r *DirRegistry) Config(name string) (json.RawMessage, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	for _, ext := range configExts {
		path := filepath.Join(r.dir, Prefix+name+ext)
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}

		cached, ok := r.cache.Get(name)
		if ok && cached.path == path && cached.modTime.Equal(info.ModTime()) {
			r.logger.Debug().Str("plugin", name).Msg("Plugin config cache hit")
			return cached.config, nil
		}

		config, err := loadConfig(path, ext)
		if err != nil {
			return nil, err
		}

		r.cache.Add(name, cachedConfig{path: path, modTime: info.ModTime(), config: config})

		r.logger.Debug().Str("plugin", name).Str("path", path).Msg("Loaded plugin config")
		return config, nil
	}

	return json.RawMessage("{}"), nil
}

// loadConfig reads a JSON or YAML config file and returns it as compact JSON.
func loadConfig(path, ext string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", ErrInvalidConfig, path, err)
	}

	if ext == ".json" {
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
		return json.RawMessage(buf.Bytes()), nil
	}

	var value interface{}
	if err := yaml.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	if value == nil {
		return json.RawMessage("{}"), nil
	}
	out, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	return json.RawMessage(out), nil
}

// identifier extracts the plugin name from an executable's file name.
func identifier(file string) (string, bool) {
	if !strings.HasPrefix(file, Prefix) || len(file) == len(Prefix) {
		return "", false
	}
	for _, ext := range configExts {
		if strings.HasSuffix(file, ext) {
			return "", false
		}
	}
	return strings.TrimPrefix(file, Prefix), true
}

func validateName(name string) error {
	if name == "" || strings.ContainsRune(name, filepath.Separator) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Select picks the plugin to run. An explicit name always wins; otherwise
// exactly one installed plugin is required.
func Select(r Registry, explicit string) (string, error) {
	if explicit != "" {
		if err := validateName(explicit); err != nil {
			return "", err
		}
		return explicit, nil
	}

	names, err := r.List()
	if err != nil {
		return "", err
	}
	switch len(names) {
	case 0:
		return "", ErrNoPlugins
	case 1:
		return names[0], nil
	default:
		return "", &AmbiguousPluginError{Plugins: names}
	}
}
