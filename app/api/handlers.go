package api

import (
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/JetpackDuba/NyaaParser/app/database"
	"github.com/JetpackDuba/NyaaParser/app/feed"
	"github.com/JetpackDuba/NyaaParser/app/tasks"
	"github.com/JetpackDuba/NyaaParser/app/torrent"
)

const downloadsFeedSize = 50

func NewHandler(configCache *feed.ConfigCache, feedRepo database.FeedRepository,
	episodeRepo database.EpisodeRepository, generator GeneratorInterface,
	scheduler tasks.TaskSchedulerInterface, version string) *Handler {
	return &Handler{
		configCache: configCache,
		feedRepo:    feedRepo,
		episodeRepo: episodeRepo,
		generator:   generator,
		scheduler:   scheduler,
		version:     version,
	}
}

func (h *Handler) GetDownloadsFeed(c *gin.Context) {
	downloads, err := h.episodeRepo.GetDownloads(c.Query("show"), downloadsFeedSize)
	if err != nil {
		slog.Error("Database error", "operation", "get_downloads", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	rss, err := h.generator.Run(downloads)
	if err != nil {
		slog.Error("RSS generation error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(downloads)))

	c.String(http.StatusOK, rss)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if feedCount, err := h.feedRepo.GetFeedCount(); err == nil {
		health["feeds"] = feedCount
	}

	if downloadCount, err := h.episodeRepo.GetDownloadCount(); err == nil {
		health["downloads"] = downloadCount
	}

	health["loaded_shows"] = h.configCache.GetConfigCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APIListShows(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	episodes, err := h.episodeRepo.GetDownloadedEpisodes()
	if err != nil {
		slog.Error("Database error", "operation", "get_downloaded_episodes", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	slices.SortFunc(names, strings.Compare)

	shows := make([]map[string]interface{}, 0, len(configs))

	for _, name := range names {
		show := configs[name]
		showEpisodes := episodes[show.Name]
		if showEpisodes == nil {
			showEpisodes = []float64{}
		}

		shows = append(shows, map[string]interface{}{
			"name":          show.Name,
			"download_path": show.DownloadPath,
			"enabled":       show.Enabled,
			"rules":         len(show.Fansubs),
			"episodes":      showEpisodes,
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"shows": shows,
		"total": len(shows),
	})
}

func (h *Handler) APIGetShow(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing show name parameter"})
		return
	}

	show, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Show configuration not found", "show", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Show configuration not found"})
		return
	}

	downloads, err := h.episodeRepo.GetDownloads(name, 0)
	if err != nil {
		slog.Error("Database error", "operation", "get_downloads", "show", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if downloads == nil {
		downloads = []database.Download{}
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"name":          show.Name,
		"download_path": show.DownloadPath,
		"enabled":       show.Enabled,
		"rules":         show.Fansubs,
		"downloads":     downloads,
	})
}

func (h *Handler) APIReloadShow(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing show name parameter"})
		return
	}

	reloadTask := tasks.NewReloadShowsTask(name, h.configCache)
	if err := h.scheduler.EnqueueTask(reloadTask); err != nil {
		slog.Error("Error enqueueing reload task", "show", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue reload task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Reload task enqueued successfully",
		"show":    name,
		"tasks": []gin.H{
			{
				"id":   reloadTask.ID,
				"type": reloadTask.Type,
			},
		},
	})
}

func (h *Handler) APIGetEpisodes(c *gin.Context) {
	episodes, err := h.episodeRepo.GetDownloadedEpisodes()
	if err != nil {
		slog.Error("Database error", "operation", "get_downloaded_episodes", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, episodes)
}

func (h *Handler) APIMatch(c *gin.Context) {
	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	metadata, err := torrent.Match(req.Title, req.Rule)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"matched": false,
			"reason":  torrent.Reason(err),
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"matched": true,
		"episode": metadata.Episode,
		"tags":    metadata.Tags,
	})
}

func (h *Handler) APICheck(c *gin.Context) {
	enqueued := h.scheduler.EnqueueFeedChecks()

	taskInfo := make([]gin.H, 0, len(enqueued))
	for _, task := range enqueued {
		taskInfo = append(taskInfo, gin.H{
			"id":     task.GetID(),
			"type":   task.GetType(),
			"target": task.GetTarget(),
		})
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Feed checks enqueued",
		"tasks":   taskInfo,
	})
}
