package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds canopy configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Preview PreviewConfig `toml:"preview"`
	Store   StoreConfig   `toml:"store"`
	Drop    DropConfig    `toml:"drop"`
	Catalog CatalogConfig `toml:"catalog"`
	UI      UIConfig      `toml:"ui"`
}

// ServerConfig controls the authoring server.
type ServerConfig struct {
	Addr   string `toml:"addr"`
	Origin string `toml:"origin"` // public origin of the authoring server
}

// PreviewConfig controls the preview handshake.
type PreviewConfig struct {
	Origin      string   `toml:"origin"` // expected renderer origin, empty means the server origin
	Timeout     Duration `toml:"timeout"`
	Debounce    Duration `toml:"debounce"`
	Auto        bool     `toml:"auto"`
	OpenBrowser bool     `toml:"open_browser"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend string `toml:"backend"` // "file", "sqlite"
	Path    string `toml:"path"`    // data directory or database file
}

// DropConfig controls drop resolution.
type DropConfig struct {
	Reparent bool `toml:"reparent"`
}

// CatalogConfig controls the node type catalog.
type CatalogConfig struct {
	Plugins string `toml:"plugins"` // directory of extra *.toml catalogs
	Persist bool   `toml:"persist"` // save and reload registered types
}

// UIConfig controls display options.
type UIConfig struct {
	Color bool `toml:"color"`
}

// Duration is a time.Duration written as a string ("3s") in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: "127.0.0.1:7410", Origin: "http://127.0.0.1:7410"},
		Preview: PreviewConfig{
			Timeout:     Duration{3 * time.Second},
			Debounce:    Duration{250 * time.Millisecond},
			Auto:        true,
			OpenBrowser: true,
		},
		Store:   StoreConfig{Backend: "file"},
		Catalog: CatalogConfig{Persist: true},
		UI:      UIConfig{Color: true},
	}
}

// ConfigDir returns the canopy config directory path.
func ConfigDir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "canopy")
}

// Path returns the config file path.
func Path() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// RendererOrigin is the origin preview messages must come from.
func (c *Config) RendererOrigin() string {
	if c.Preview.Origin != "" {
		return c.Preview.Origin
	}
	return c.Server.Origin
}

// StorePath resolves the store location for the configured backend.
func (c *Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	if c.Store.Backend == "sqlite" {
		return filepath.Join(ConfigDir(), "canopy.db")
	}
	return filepath.Join(ConfigDir(), "data")
}

// PluginDir resolves the catalog plugin directory.
func (c *Config) PluginDir() string {
	if c.Catalog.Plugins != "" {
		return c.Catalog.Plugins
	}
	return filepath.Join(ConfigDir(), "catalog")
}

// Load reads the config file, then a .canopy.toml found in the working
// directory or its parents, then environment overrides. A .env file in the
// working directory is loaded first if present.
func Load() *Config {
	cfg := Default()

	if data, err := os.ReadFile(Path()); err == nil {
		_ = toml.Unmarshal(data, cfg)
	}
	if project := findProjectConfig(); project != "" {
		if data, err := os.ReadFile(project); err == nil {
			_ = toml.Unmarshal(data, cfg)
		}
	}

	_ = godotenv.Load()
	applyEnv(cfg)
	return cfg
}

// findProjectConfig walks up from the working directory looking for
// .canopy.toml.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, ".canopy.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func applyEnv(cfg *Config) {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(key); ok {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}
	dur := func(key string, dst *Duration) {
		if v, ok := os.LookupEnv(key); ok {
			if d, err := time.ParseDuration(v); err == nil {
				dst.Duration = d
			}
		}
	}

	str("CANOPY_ADDR", &cfg.Server.Addr)
	str("CANOPY_ORIGIN", &cfg.Server.Origin)
	str("CANOPY_PREVIEW_ORIGIN", &cfg.Preview.Origin)
	dur("CANOPY_PREVIEW_TIMEOUT", &cfg.Preview.Timeout)
	dur("CANOPY_PREVIEW_DEBOUNCE", &cfg.Preview.Debounce)
	flag("CANOPY_PREVIEW_AUTO", &cfg.Preview.Auto)
	flag("CANOPY_OPEN_BROWSER", &cfg.Preview.OpenBrowser)
	str("CANOPY_STORE", &cfg.Store.Backend)
	str("CANOPY_STORE_PATH", &cfg.Store.Path)
	flag("CANOPY_REPARENT", &cfg.Drop.Reparent)
	str("CANOPY_PLUGINS", &cfg.Catalog.Plugins)
	flag("CANOPY_PERSIST_CATALOG", &cfg.Catalog.Persist)
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		cfg.UI.Color = false
	}
	cfg.Store.Backend = strings.ToLower(cfg.Store.Backend)
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("store.backend %q: want file or sqlite", c.Store.Backend)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is empty")
	}
	if c.Preview.Timeout.Duration <= 0 {
		return fmt.Errorf("preview.timeout must be positive")
	}
	return nil
}

// Save writes the config to disk.
func Save(cfg *Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// EnsureExists creates the config file with defaults if it doesn't exist.
func EnsureExists() error {
	if _, err := os.Stat(Path()); err == nil {
		return nil // already exists
	}
	return Save(Default())
}
