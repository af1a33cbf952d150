package database

import (
	"time"
)

type FeedRepository interface {
	GetFeed(feedURL string) (*Feed, error)
	GetFeeds() ([]Feed, error)
	GetFeedCount() (int, error)

	UpsertFeed(feedURL string) error
	UpdateFeedFetched(feedURL string, title string, itemCount int, fetchedAt time.Time) error
}

type EpisodeRepository interface {
	// GetDownloadedEpisodes returns the downloaded episode numbers keyed by show name.
	GetDownloadedEpisodes() (map[string][]float64, error)
	// SaveDownloadedEpisodes merges the given episodes into the store. Existing
	// records are kept.
	SaveDownloadedEpisodes(episodes map[string][]float64) error

	IsDownloaded(showName string, episode float64) (bool, error)
	GetDownloads(showName string, limit int) ([]Download, error)
	GetDownloadCount() (int, error)

	// ClaimEpisode records the download unless the episode is already recorded
	// for the show. It reports whether this call created the record.
	ClaimEpisode(download Download) (bool, error)
	ReleaseEpisode(showName string, episode float64) error
}
