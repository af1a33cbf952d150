package torrent

// Rule describes one release a show is followed through: the show name as it
// appears in torrent titles, the fansub group and the tags a release must carry.
type Rule struct {
	Name     string   `yaml:"name" toml:"name" json:"name"`
	Fansub   string   `yaml:"fansub" toml:"fansub" json:"fansub"`
	Keywords []string `yaml:"keywords" toml:"keywords" json:"keywords"`
}

// Metadata is what a matching title yields.
type Metadata struct {
	Episode float64  `json:"episode"`
	Tags    []string `json:"tags"` // in title order, brackets included
}
