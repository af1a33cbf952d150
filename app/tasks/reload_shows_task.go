package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JetpackDuba/NyaaParser/app/feed"
)

// ReloadShowsTask re-reads show configuration from disk. An empty show name
// reloads the whole directory.
type ReloadShowsTask struct {
	Task
	ShowName    string
	configCache *feed.ConfigCache
}

func NewReloadShowsTask(showName string, configCache *feed.ConfigCache) *ReloadShowsTask {
	return &ReloadShowsTask{
		Task:        NewTask(TaskTypeReloadShows, showName),
		ShowName:    showName,
		configCache: configCache,
	}
}

func (t *ReloadShowsTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if t.ShowName == "" {
		if err := t.configCache.Run(); err != nil {
			return fmt.Errorf("failed to reload show configurations: %w", err)
		}
	} else {
		if _, err := t.configCache.LoadConfig(t.ShowName); err != nil {
			return fmt.Errorf("failed to reload show configuration: %w", err)
		}
	}

	slog.Info("Task completed",
		"type", "ReloadShows",
		"show", t.ShowName,
		"shows", t.configCache.GetConfigCount(),
		"duration", t.GetDuration())

	return nil
}
