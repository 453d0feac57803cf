// Package config holds the immutable run configuration: the arena and
// category tables, fetch and reconciliation tuning, and output paths.
// The tables are passed into the pipeline entry point rather than
// living as package-level state, so tests can substitute fixtures.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/retea-se/pag/internal/event"
	"gopkg.in/yaml.v3"
)

// FetchConfig tunes the HTTP layer.
type FetchConfig struct {
	TimeoutMS   int `yaml:"timeout_ms"`   // per-request timeout
	Retries     int `yaml:"retries"`      // extra attempts after the first
	MaxParallel int `yaml:"max_parallel"` // concurrent detail scrapes per arena
	DelayMS     int `yaml:"delay_ms"`     // politeness delay before each detail scrape
}

// ReconcileConfig tunes cross-arena deduplication and retention.
// The completeness weighting privileges the arena whose pages carry
// the most complete metadata; it is a heuristic for the four known
// arenas, kept as configuration rather than a constant.
type ReconcileConfig struct {
	RetentionDays    int    `yaml:"retention_days"`
	PreferredArenaID string `yaml:"preferred_arena_id"`
	OpponentWeight   int    `yaml:"opponent_weight"`
	TimeWeight       int    `yaml:"time_weight"`
	PreferredWeight  int    `yaml:"preferred_weight"`
}

// FilterConfig lists the upsell SKUs the listing APIs mix in with real
// events.
type FilterConfig struct {
	ExactTitles   []string `yaml:"exact_titles"`
	TitleContains []string `yaml:"title_contains"`
}

// Config is the full, immutable run configuration.
type Config struct {
	Arenas          []event.Arena            `yaml:"arenas"`
	Categories      map[int64]event.Category `yaml:"categories"`
	Fetch           FetchConfig              `yaml:"fetch"`
	Reconcile       ReconcileConfig          `yaml:"reconcile"`
	Filter          FilterConfig             `yaml:"filter"`
	RunTimeoutMS    int                      `yaml:"run_timeout_ms"`
	OutputDir       string                   `yaml:"output_dir"`
	BaseURL         string                   `yaml:"base_url"`
	Timezone        string                   `yaml:"timezone"`
	TicketmasterKey string                   `yaml:"ticketmaster_key"`
}

// Default returns the built-in configuration for the four Stockholm
// Live arenas.
func Default() *Config {
	cfg := &Config{
		Arenas: []event.Arena{
			{
				ID:                   "avicii-arena",
				Name:                 "Avicii Arena",
				APIURL:               "https://aviciiarena.se/wp-json/wp/v2/events?per_page=100",
				Website:              "https://aviciiarena.se",
				Color:                "#3b82f6",
				AllowedHosts:         []string{"aviciiarena.se"},
				TicketmasterVenueIDs: []string{"Z7r9jZaA6X", "KovZ917Adl7"},
			},
			{
				ID:           "3arena",
				Name:         "3Arena",
				APIURL:       "https://3arena.se/wp-json/wp/v2/events?per_page=100",
				Website:      "https://3arena.se",
				Color:        "#10b981",
				AllowedHosts: []string{"3arena.se"},
			},
			{
				ID:                   "hovet",
				Name:                 "Hovet",
				APIURL:               "https://hovetarena.se/wp-json/wp/v2/events?per_page=100",
				Website:              "https://hovetarena.se",
				Color:                "#f59e0b",
				AllowedHosts:         []string{"hovetarena.se"},
				HomeTeams:            []string{"Djurgårdens IF", "Djurgården Hockey", "Djurgården"},
				TicketmasterVenueIDs: []string{"Z698xZq2Za7wK", "Z598xZq2ZevA1", "Z598xZq2Zevk7", "ZFr9jZ1kFk"},
			},
			{
				ID:                   "annexet",
				Name:                 "Annexet",
				APIURL:               "https://annexet.se/wp-json/wp/v2/events?per_page=100",
				Website:              "https://annexet.se",
				Color:                "#ef4444",
				AllowedHosts:         []string{"annexet.se"},
				TicketmasterVenueIDs: []string{"Za98xZq2Za1"},
			},
		},
		Categories: map[int64]event.Category{
			27: {Name: "Musik/Show", Icon: "music"},
			29: {Name: "Sport", Icon: "sport"},
			30: {Name: "Humor/Samtal", Icon: "mic"},
			35: {Name: "Annat", Icon: "calendar"},
			26: {Name: "Event", Icon: "calendar"},
		},
		Filter: FilterConfig{
			ExactTitles:   []string{"Premium", "The 1989"},
			TitleContains: []string{"clubhouse", "premium lounge"},
		},
	}
	cfg.defaults()
	return cfg
}

// defaults fills zero-valued tuning fields.
func (c *Config) defaults() {
	if c.Fetch.TimeoutMS == 0 {
		c.Fetch.TimeoutMS = 10000
	}
	if c.Fetch.Retries == 0 {
		c.Fetch.Retries = 2
	}
	if c.Fetch.MaxParallel == 0 {
		c.Fetch.MaxParallel = 5
	}
	if c.Fetch.DelayMS == 0 {
		c.Fetch.DelayMS = 200
	}
	if c.Reconcile.RetentionDays == 0 {
		c.Reconcile.RetentionDays = 2
	}
	if c.Reconcile.PreferredArenaID == "" {
		c.Reconcile.PreferredArenaID = "hovet"
	}
	if c.Reconcile.OpponentWeight == 0 {
		c.Reconcile.OpponentWeight = 10
	}
	if c.Reconcile.TimeWeight == 0 {
		c.Reconcile.TimeWeight = 5
	}
	if c.Reconcile.PreferredWeight == 0 {
		c.Reconcile.PreferredWeight = 1
	}
	if c.RunTimeoutMS == 0 {
		c.RunTimeoutMS = 300000
	}
	if c.OutputDir == "" {
		c.OutputDir = "public"
	}
	if c.BaseURL == "" {
		c.BaseURL = "https://retea.se/pag"
	}
	if c.Timezone == "" {
		c.Timezone = "Europe/Stockholm"
	}
}

// applyEnv overlays environment variables on the loaded configuration.
func (c *Config) applyEnv() {
	if v, ok := envInt("PAG_FETCH_TIMEOUT_MS"); ok {
		c.Fetch.TimeoutMS = v
	}
	if v, ok := envInt("PAG_RUN_TIMEOUT_MS"); ok {
		c.RunTimeoutMS = v
	}
	if v, ok := envInt("PAG_MAX_PARALLEL"); ok {
		c.Fetch.MaxParallel = v
	}
	if v := os.Getenv("PAG_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv("TICKETMASTER_KEY"); v != "" {
		c.TicketmasterKey = v
	}
}

func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// validate checks required fields and value constraints.
func (c *Config) validate() error {
	if len(c.Arenas) == 0 {
		return fmt.Errorf("at least one arena is required")
	}
	for i, a := range c.Arenas {
		if a.ID == "" {
			return fmt.Errorf("arenas[%d].id is required", i)
		}
		if a.APIURL == "" {
			return fmt.Errorf("arenas[%d].api_url is required", i)
		}
	}
	if c.Fetch.TimeoutMS < 1 {
		return fmt.Errorf("fetch.timeout_ms must be positive")
	}
	if c.RunTimeoutMS < 1 {
		return fmt.Errorf("run_timeout_ms must be positive")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// Load reads a YAML config file when path is non-empty, otherwise
// starts from the defaults; then applies env overrides and validates.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
		cfg.defaults()
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Location resolves the configured timezone. validate guarantees it
// loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// AllowedDomains collects every arena's scrape allowlist.
func (c *Config) AllowedDomains() []string {
	var domains []string
	for _, a := range c.Arenas {
		domains = append(domains, a.AllowedHosts...)
	}
	return domains
}

// FetchTimeout returns the per-request timeout as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutMS) * time.Millisecond
}

// RunTimeout returns the global run watchdog ceiling as a duration.
func (c *Config) RunTimeout() time.Duration {
	return time.Duration(c.RunTimeoutMS) * time.Millisecond
}

// ScrapeDelay returns the politeness delay between detail scrapes.
func (c *Config) ScrapeDelay() time.Duration {
	return time.Duration(c.Fetch.DelayMS) * time.Millisecond
}
