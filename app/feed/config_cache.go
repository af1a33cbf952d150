package feed

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var configExtensions = []string{".yml", ".yaml", ".toml"}

var errConfigNotFound = errors.New("no configuration file")

type ConfigCache struct {
	showsDir string
	cache    map[string]*Show
	mu       sync.RWMutex
}

func NewConfigCache(showsDir string) *ConfigCache {
	return &ConfigCache{
		showsDir: showsDir,
		cache:    make(map[string]*Show),
	}
}

// Run rereads every show file and replaces the cache, so removed files
// drop their shows. The previous cache is kept when any file fails.
func (cc *ConfigCache) Run() error {
	shows := make(map[string]*Show)

	if _, err := os.Stat(cc.showsDir); err == nil {
		for _, ext := range configExtensions {
			files, err := filepath.Glob(filepath.Join(cc.showsDir, "*"+ext))
			if err != nil {
				return fmt.Errorf("failed to find %s files: %w", ext, err)
			}

			for _, file := range files {
				showName := strings.TrimSuffix(filepath.Base(file), ext)
				if _, seen := shows[showName]; seen {
					continue
				}

				show, err := cc.readConfig(showName)
				if err != nil {
					return fmt.Errorf("error loading %s: %w", file, err)
				}
				shows[showName] = show

				slog.Debug("Configuration loaded", "show", showName, "enabled", show.Enabled, "rules", len(show.Fansubs))
			}
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read shows directory: %w", err)
	}

	cc.mu.Lock()
	removed := 0
	for name := range cc.cache {
		if _, ok := shows[name]; !ok {
			removed++
		}
	}
	cc.cache = shows
	cc.mu.Unlock()

	if removed > 0 {
		slog.Info("Show configurations removed", "count", removed)
	}

	return nil
}

// LoadConfig rereads one show file. A show whose file is gone is evicted.
func (cc *ConfigCache) LoadConfig(showName string) (*Show, error) {
	show, err := cc.readConfig(showName)
	if err != nil {
		if errors.Is(err, errConfigNotFound) {
			cc.mu.Lock()
			delete(cc.cache, showName)
			cc.mu.Unlock()
		}
		return nil, err
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[show.Name] = show

	return show, nil
}

func (cc *ConfigCache) readConfig(showName string) (*Show, error) {
	configFile, err := cc.getConfigFilePath(showName)
	if err != nil {
		return nil, err
	}

	show, err := cc.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	show.Name = showName

	if err := cc.validateConfig(show); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	return show, nil
}

func (cc *ConfigCache) GetConfig(showName string) (*Show, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	show, ok := cc.cache[showName]
	if !ok {
		return nil, fmt.Errorf("show config with name '%s' not found", showName)
	}
	return show, nil
}

func (cc *ConfigCache) GetConfigs() map[string]*Show {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	configsCopy := make(map[string]*Show, len(cc.cache))
	for k, v := range cc.cache {
		configsCopy[k] = v
	}
	return configsCopy
}

// GetEnabledConfigs returns enabled shows ordered by name.
func (cc *ConfigCache) GetEnabledConfigs() []*Show {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	shows := make([]*Show, 0, len(cc.cache))
	for _, show := range cc.cache {
		if show.Enabled {
			shows = append(shows, show)
		}
	}
	slices.SortFunc(shows, func(a, b *Show) int {
		return strings.Compare(a.Name, b.Name)
	})
	return shows
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

func (cc *ConfigCache) parseConfig(configFile string) (*Show, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var show Show
	if filepath.Ext(configFile) == ".toml" {
		if err := toml.Unmarshal(data, &show); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &show); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	return &show, nil
}

func (cc *ConfigCache) validateConfig(show *Show) error {
	if show == nil {
		return fmt.Errorf("show is nil")
	}

	if show.Name == "" {
		return fmt.Errorf("show name is required")
	}
	if show.DownloadPath == "" {
		return fmt.Errorf("download path is required")
	}
	if len(show.Fansubs) == 0 {
		return fmt.Errorf("at least one fansub rule is required")
	}

	for i, rule := range show.Fansubs {
		if rule.Name == "" {
			return fmt.Errorf("fansub rule at index %d: name is required", i)
		}
		if rule.Fansub == "" {
			return fmt.Errorf("fansub rule at index %d: fansub is required", i)
		}
	}

	return nil
}

func (cc *ConfigCache) getConfigFilePath(showName string) (string, error) {
	for _, ext := range configExtensions {
		path := filepath.Join(cc.showsDir, showName+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: show '%s' in %s", errConfigNotFound, showName, cc.showsDir)
}
