package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/JetpackDuba/NyaaParser/app/database"
	"github.com/JetpackDuba/NyaaParser/app/dispatch"
	"github.com/JetpackDuba/NyaaParser/app/feed"
)

// FeedCheckOptions holds the settings shared by every feed check.
type FeedCheckOptions struct {
	UserAgent string
	Timeout   time.Duration
	DryRun    bool
}

type CheckFeedTask struct {
	Task
	FeedURL     string
	configCache *feed.ConfigCache
	httpClient  *http.Client
	parser      *feed.Parser
	selector    *feed.Selector
	feedRepo    database.FeedRepository
	episodeRepo database.EpisodeRepository
	submitter   dispatch.Submitter
	opts        FeedCheckOptions
}

func NewCheckFeedTask(feedURL string, configCache *feed.ConfigCache, httpClient *http.Client,
	parser *feed.Parser, selector *feed.Selector, feedRepo database.FeedRepository,
	episodeRepo database.EpisodeRepository, submitter dispatch.Submitter, opts FeedCheckOptions) *CheckFeedTask {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	return &CheckFeedTask{
		Task:        NewTask(TaskTypeCheckFeed, feedURL),
		FeedURL:     feedURL,
		configCache: configCache,
		httpClient:  httpClient,
		parser:      parser,
		selector:    selector,
		feedRepo:    feedRepo,
		episodeRepo: episodeRepo,
		submitter:   submitter,
		opts:        opts,
	}
}

func (t *CheckFeedTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	shows := t.configCache.GetEnabledConfigs()
	if len(shows) == 0 {
		slog.Debug("No enabled shows, skipping feed check", "feed", t.FeedURL)
		return nil
	}

	if err := t.feedRepo.UpsertFeed(t.FeedURL); err != nil {
		return fmt.Errorf("failed to register feed: %w", err)
	}

	data, err := t.fetchFeed(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch feed: %w", err)
	}

	metadata, items, err := t.parser.Run(data)
	if err != nil {
		return fmt.Errorf("failed to parse feed: %w", err)
	}

	if err := t.feedRepo.UpdateFeedFetched(t.FeedURL, metadata.Title, len(items), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to store feed fetch: %w", err)
	}

	downloaded, err := t.episodeRepo.GetDownloadedEpisodes()
	if err != nil {
		return fmt.Errorf("failed to load downloaded episodes: %w", err)
	}

	candidates := t.selector.Run(items, shows)

	sentCount := 0
	skippedCount := 0
	var errs []error

	for _, candidate := range candidates {
		showName := candidate.Show.Name
		episode := candidate.Metadata.Episode

		if slices.Contains(downloaded[showName], episode) {
			slog.Debug("Episode already downloaded", "show", showName, "episode", episode, "title", candidate.Item.Title)
			skippedCount++
			continue
		}

		sent, err := t.download(ctx, candidate)
		if err != nil {
			slog.Error("Failed to download episode", "show", showName, "episode", episode, "title", candidate.Item.Title, "error", err)
			errs = append(errs, err)
			continue
		}

		downloaded[showName] = append(downloaded[showName], episode)
		if sent {
			sentCount++
		} else {
			skippedCount++
		}
	}

	slog.Info("Task completed",
		"type", "CheckFeed",
		"feed", t.FeedURL,
		"duration", t.GetDuration(),
		"items", len(items),
		"matches", len(candidates),
		"sent", sentCount,
		"skipped", skippedCount,
		"errors", len(errs))

	return errors.Join(errs...)
}

// download claims the episode and hands the torrent to the download client.
// It reports false when nothing was sent: the claim was lost to another
// check or this is a dry run.
func (t *CheckFeedTask) download(ctx context.Context, candidate feed.Candidate) (bool, error) {
	showName := candidate.Show.Name
	episode := candidate.Metadata.Episode

	item := candidate.Item
	download := database.Download{
		ShowName: showName,
		Episode:  episode,
		Fansub:   candidate.Rule.Fansub,
		Title:    item.Title,
		Link:     item.Link,
		Tags:     candidate.Metadata.Tags,
		GUID:     item.GUID,
		InfoHash: item.InfoHash,
		Size:     item.Size,
		Category: item.Category,
		Summary:  item.Summary,
	}
	if !item.PublishedAt.IsZero() {
		publishedAt := item.PublishedAt
		download.PublishedAt = &publishedAt
	}

	claimed, err := t.episodeRepo.ClaimEpisode(download)
	if err != nil {
		return false, err
	}
	if !claimed {
		slog.Debug("Episode claimed elsewhere", "show", showName, "episode", episode)
		return false, nil
	}

	if t.opts.DryRun {
		slog.Info("Dry run, episode not sent", "show", showName, "episode", episode, "title", candidate.Item.Title)
		return false, t.episodeRepo.ReleaseEpisode(showName, episode)
	}

	if err := t.submitter.Submit(ctx, candidate.Show.DownloadPath, candidate.Item.Link); err != nil {
		if releaseErr := t.episodeRepo.ReleaseEpisode(showName, episode); releaseErr != nil {
			return false, errors.Join(err, releaseErr)
		}
		return false, err
	}

	slog.Info("Episode sent to download client",
		"show", showName,
		"episode", episode,
		"fansub", candidate.Rule.Fansub,
		"download_path", candidate.Show.DownloadPath,
		"title", item.Title,
		"guid", item.GUID,
		"size", item.Size,
		"seeders", item.Seeders)

	return true, nil
}

func (t *CheckFeedTask) fetchFeed(ctx context.Context) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, t.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", t.FeedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", t.opts.UserAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
