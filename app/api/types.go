package api

import (
	"github.com/JetpackDuba/NyaaParser/app/database"
	"github.com/JetpackDuba/NyaaParser/app/feed"
	"github.com/JetpackDuba/NyaaParser/app/tasks"
	"github.com/JetpackDuba/NyaaParser/app/torrent"
)

type GeneratorInterface interface {
	Run(downloads []database.Download) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type Handler struct {
	configCache *feed.ConfigCache
	feedRepo    database.FeedRepository
	episodeRepo database.EpisodeRepository
	generator   GeneratorInterface
	scheduler   tasks.TaskSchedulerInterface
	version     string
}

// MatchRequest is the body of POST /api/match.
type MatchRequest struct {
	Title string       `json:"title" binding:"required"`
	Rule  torrent.Rule `json:"rule"`
}
