package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage
	DBPath   string `long:"db-path" env:"DB_PATH" default:"./nyaa.db" description:"SQLite database file"`
	ShowsDir string `long:"shows-dir" env:"SHOWS_DIR" default:"./shows" description:"Directory containing show configuration files"`

	// Feed polling
	FeedURLs          []string `long:"feed-url" env:"FEED_URLS" env-delim:"," default:"https://nyaa.si/?page=rss" description:"Torrent feed to watch (repeatable)"`
	WorkerCount       int      `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers"`
	SchedulerInterval int      `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"120" description:"Feed check interval in seconds"`
	FetchTimeout      int      `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Feed download timeout in seconds"`
	UserAgent         string   `long:"user-agent" env:"USER_AGENT" default:"NyaaParser/1.0" description:"User agent string for HTTP requests"`

	// Download client
	TransmissionRemote string `long:"transmission-remote" env:"TRANSMISSION_REMOTE" default:"transmission-remote" description:"transmission-remote executable"`
	TransmissionHost   string `long:"transmission-host" env:"TRANSMISSION_HOST" description:"Transmission daemon host[:port] (optional)"`
	TransmissionAuth   string `long:"transmission-auth" env:"TRANSMISSION_AUTH" description:"Transmission credentials as user:password (optional)"`
	DryRun             bool   `long:"dry-run" env:"DRY_RUN" description:"Log matching episodes without downloading them"`

	// HTTP API
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl      string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://nyaa.example.com)"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Europe/Madrid)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

func Load() (*Cfg, error) {
	return load(nil)
}

func load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args == nil {
		_, err = parser.Parse()
	} else {
		_, err = parser.ParseArgs(args)
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:             raw.DBPath,
		ShowsDir:           raw.ShowsDir,
		FeedURLs:           raw.FeedURLs,
		WorkerCount:        raw.WorkerCount,
		SchedulerInterval:  raw.SchedulerInterval,
		FetchTimeout:       raw.FetchTimeout,
		UserAgent:          raw.UserAgent,
		TransmissionRemote: raw.TransmissionRemote,
		TransmissionHost:   raw.TransmissionHost,
		TransmissionAuth:   raw.TransmissionAuth,
		DryRun:             raw.DryRun,
		Port:               raw.Port,
		BaseUrl:            raw.BaseUrl,
		APIAccessKey:       raw.APIAccessKey,
		Timezone:           raw.Timezone,
		Debug:              raw.Debug,
		Version:            GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

func validate(cfg *Cfg) error {
	if len(cfg.FeedURLs) == 0 {
		return fmt.Errorf("at least one feed URL is required")
	}
	if cfg.WorkerCount < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}
	if cfg.SchedulerInterval < 1 {
		return fmt.Errorf("scheduler interval must be positive")
	}
	if cfg.FetchTimeout < 1 {
		return fmt.Errorf("fetch timeout must be positive")
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
