package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ FeedRepository = (*feedRepository)(nil)

type feedRepository struct {
	db *DB
}

func NewFeedRepository(db *DB) FeedRepository {
	return &feedRepository{db: db}
}

func (r *feedRepository) UpsertFeed(feedURL string) error {
	now := time.Now().UTC()

	_, err := r.db.Exec(`
		INSERT INTO feeds (id, url, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (url) DO UPDATE SET updated_at = excluded.updated_at
	`, uuid.NewString(), feedURL, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert feed: %w", err)
	}

	return nil
}

func (r *feedRepository) UpdateFeedFetched(feedURL string, title string, itemCount int, fetchedAt time.Time) error {
	result, err := r.db.Exec(`
		UPDATE feeds
		SET title = ?, item_count = ?, last_fetched_at = ?, updated_at = ?
		WHERE url = ?
	`, title, itemCount, fetchedAt.UTC(), time.Now().UTC(), feedURL)
	if err != nil {
		return fmt.Errorf("failed to update feed: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("feed not found: %s", feedURL)
	}

	return nil
}

func (r *feedRepository) GetFeed(feedURL string) (*Feed, error) {
	row := r.db.QueryRow(`
		SELECT id, url, title, item_count, last_fetched_at, created_at, updated_at
		FROM feeds
		WHERE url = ?
	`, feedURL)

	feed, err := scanFeed(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}

	return feed, nil
}

func (r *feedRepository) GetFeeds() ([]Feed, error) {
	rows, err := r.db.Query(`
		SELECT id, url, title, item_count, last_fetched_at, created_at, updated_at
		FROM feeds
		ORDER BY url
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get feeds: %w", err)
	}
	defer rows.Close()

	var feeds []Feed
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed row: %w", err)
		}
		feeds = append(feeds, *feed)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed rows: %w", err)
	}

	return feeds, nil
}

func (r *feedRepository) GetFeedCount() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM feeds`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count feeds: %w", err)
	}
	return count, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFeed(s scanner) (*Feed, error) {
	var feed Feed
	var lastFetchedAt sql.NullTime

	err := s.Scan(&feed.ID, &feed.URL, &feed.Title, &feed.ItemCount,
		&lastFetchedAt, &feed.CreatedAt, &feed.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if lastFetchedAt.Valid {
		feed.LastFetchedAt = &lastFetchedAt.Time
	}

	return &feed, nil
}
