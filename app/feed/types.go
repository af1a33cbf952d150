package feed

import (
	"time"

	"github.com/JetpackDuba/NyaaParser/app/torrent"
)

// Feed processing types

type Metadata struct {
	Title       string
	Link        string
	Description string
}

type Item struct {
	GUID        string
	Title       string
	Link        string // torrent download URL
	Summary     string // description with markup stripped
	PublishedAt time.Time

	// Populated from the nyaa: namespace when the feed carries it
	InfoHash string
	Size     string
	Seeders  int
	Category string
}

// Configuration types

type Show struct {
	Name         string         `yaml:"-" toml:"-"` // Derived from filename (without extension)
	DownloadPath string         `yaml:"download_path" toml:"download_path"`
	Enabled      bool           `yaml:"enabled" toml:"enabled"`
	Fansubs      []torrent.Rule `yaml:"fansubs" toml:"fansubs"`
}

// Candidate is a feed item that satisfied one of a show's rules.
type Candidate struct {
	Item     Item
	Show     *Show
	Rule     torrent.Rule
	Metadata torrent.Metadata
}
