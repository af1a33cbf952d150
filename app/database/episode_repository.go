package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ EpisodeRepository = (*episodeRepository)(nil)

type episodeRepository struct {
	db *DB
}

func NewEpisodeRepository(db *DB) EpisodeRepository {
	return &episodeRepository{db: db}
}

func (r *episodeRepository) GetDownloadedEpisodes() (map[string][]float64, error) {
	rows, err := r.db.Query(`
		SELECT show_name, episode
		FROM downloaded_episodes
		ORDER BY show_name, episode
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get downloaded episodes: %w", err)
	}
	defer rows.Close()

	episodes := make(map[string][]float64)
	for rows.Next() {
		var showName string
		var episode float64
		if err := rows.Scan(&showName, &episode); err != nil {
			return nil, fmt.Errorf("failed to scan episode row: %w", err)
		}
		episodes[showName] = append(episodes[showName], episode)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating episode rows: %w", err)
	}

	return episodes, nil
}

func (r *episodeRepository) SaveDownloadedEpisodes(episodes map[string][]float64) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO downloaded_episodes (id, show_name, episode, downloaded_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (show_name, episode) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for showName, showEpisodes := range episodes {
		for _, episode := range showEpisodes {
			if _, err := stmt.Exec(uuid.NewString(), showName, episode, now); err != nil {
				return fmt.Errorf("failed to save episode %v of %s: %w", episode, showName, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit episodes: %w", err)
	}

	return nil
}

func (r *episodeRepository) IsDownloaded(showName string, episode float64) (bool, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM downloaded_episodes WHERE show_name = ? AND episode = ?
	`, showName, episode).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check episode: %w", err)
	}
	return count > 0, nil
}

func (r *episodeRepository) ClaimEpisode(download Download) (bool, error) {
	tags, err := json.Marshal(download.Tags)
	if err != nil {
		return false, fmt.Errorf("failed to encode tags: %w", err)
	}

	downloadedAt := download.DownloadedAt
	if downloadedAt.IsZero() {
		downloadedAt = time.Now()
	}

	var publishedAt *time.Time
	if download.PublishedAt != nil {
		utc := download.PublishedAt.UTC()
		publishedAt = &utc
	}

	result, err := r.db.Exec(`
		INSERT INTO downloaded_episodes (id, show_name, episode, fansub, title, link, tags, downloaded_at,
			guid, info_hash, size, category, summary, published_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (show_name, episode) DO NOTHING
	`, uuid.NewString(), download.ShowName, download.Episode, download.Fansub,
		download.Title, download.Link, string(tags), downloadedAt.UTC(),
		download.GUID, download.InfoHash, download.Size, download.Category, download.Summary, publishedAt)
	if err != nil {
		return false, fmt.Errorf("failed to claim episode: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows == 1, nil
}

func (r *episodeRepository) ReleaseEpisode(showName string, episode float64) error {
	_, err := r.db.Exec(`
		DELETE FROM downloaded_episodes WHERE show_name = ? AND episode = ?
	`, showName, episode)
	if err != nil {
		return fmt.Errorf("failed to release episode: %w", err)
	}
	return nil
}

// GetDownloads returns the most recent downloads, for every show when showName is empty.
func (r *episodeRepository) GetDownloads(showName string, limit int) ([]Download, error) {
	if limit <= 0 {
		limit = -1 // no limit
	}

	rows, err := r.db.Query(`
		SELECT id, show_name, episode, fansub, title, link, tags, downloaded_at,
			guid, info_hash, size, category, summary, published_at
		FROM downloaded_episodes
		WHERE ? = '' OR show_name = ?
		ORDER BY downloaded_at DESC, show_name, episode DESC
		LIMIT ?
	`, showName, showName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get downloads: %w", err)
	}
	defer rows.Close()

	var downloads []Download
	for rows.Next() {
		var download Download
		var tags string
		var publishedAt sql.NullTime
		err := rows.Scan(&download.ID, &download.ShowName, &download.Episode, &download.Fansub,
			&download.Title, &download.Link, &tags, &download.DownloadedAt,
			&download.GUID, &download.InfoHash, &download.Size, &download.Category, &download.Summary, &publishedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan download row: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &download.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags of %s: %w", download.ID, err)
		}
		if publishedAt.Valid {
			utc := publishedAt.Time.UTC()
			download.PublishedAt = &utc
		}
		downloads = append(downloads, download)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating download rows: %w", err)
	}

	return downloads, nil
}

func (r *episodeRepository) GetDownloadCount() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM downloaded_episodes`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count downloads: %w", err)
	}
	return count, nil
}
