package feed

import (
	"log/slog"

	"github.com/JetpackDuba/NyaaParser/app/torrent"
)

// Selector tests every feed item against every rule of every show.
type Selector struct{}

func NewSelector() *Selector {
	return &Selector{}
}

func (s *Selector) Run(items []Item, shows []*Show) []Candidate {
	var candidates []Candidate

	for _, item := range items {
		for _, show := range shows {
			for _, rule := range show.Fansubs {
				metadata, err := torrent.Match(item.Title, rule)
				if err != nil {
					slog.Debug("Rule does not apply",
						"title", item.Title,
						"show", show.Name,
						"fansub", rule.Fansub,
						"reason", torrent.Reason(err))
					continue
				}

				candidates = append(candidates, Candidate{
					Item:     item,
					Show:     show,
					Rule:     rule,
					Metadata: metadata,
				})
			}
		}
	}

	return candidates
}
