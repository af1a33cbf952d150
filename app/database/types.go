package database

import (
	"time"
)

type Feed struct {
	ID            string // Database UUID
	URL           string
	Title         string
	ItemCount     int // items seen on the last fetch
	LastFetchedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Download records one episode sent to the download client.
type Download struct {
	ID           string    `json:"id"`
	ShowName     string    `json:"show_name"`
	Episode      float64   `json:"episode"`
	Fansub       string    `json:"fansub"`
	Title        string    `json:"title"` // torrent title the episode was matched from
	Link         string    `json:"link"`
	Tags         []string  `json:"tags"`
	DownloadedAt time.Time `json:"downloaded_at"`

	// Copied from the feed item
	GUID        string     `json:"guid"`
	InfoHash    string     `json:"info_hash"`
	Size        string     `json:"size"`
	Category    string     `json:"category"`
	Summary     string     `json:"summary"`
	PublishedAt *time.Time `json:"published_at"`
}
