package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/JetpackDuba/NyaaParser/app/database"
	"github.com/JetpackDuba/NyaaParser/app/dispatch"
	"github.com/JetpackDuba/NyaaParser/app/feed"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// SchedulerOptions configures the worker pool and the feeds it polls.
type SchedulerOptions struct {
	FeedURLs    []string
	Interval    time.Duration
	WorkerCount int
	FeedCheck   FeedCheckOptions
}

type Scheduler struct {
	configCache *feed.ConfigCache
	feedRepo    database.FeedRepository
	episodeRepo database.EpisodeRepository
	httpClient  *http.Client
	parser      *feed.Parser
	selector    *feed.Selector
	submitter   dispatch.Submitter
	opts        SchedulerOptions
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface

	mu       sync.Mutex
	inFlight map[string]bool // queued or running periodic tasks, by type and target
}

func NewScheduler(configCache *feed.ConfigCache, feedRepo database.FeedRepository,
	episodeRepo database.EpisodeRepository, httpClient *http.Client, parser *feed.Parser,
	selector *feed.Selector, submitter dispatch.Submitter, opts SchedulerOptions) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	if opts.WorkerCount < 1 {
		opts.WorkerCount = 1
	}
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Minute
	}

	return &Scheduler{
		configCache: configCache,
		feedRepo:    feedRepo,
		episodeRepo: episodeRepo,
		httpClient:  httpClient,
		parser:      parser,
		selector:    selector,
		submitter:   submitter,
		opts:        opts,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 100),
		inFlight:    make(map[string]bool),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.opts.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.opts.Interval)
		defer ticker.Stop()

		s.enqueueTick()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTick()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

// enqueueTick queues a reload of the shows directory ahead of the feed
// checks, so added, edited and deleted show files apply on the next round.
func (s *Scheduler) enqueueTick() {
	s.enqueueShowsReload()
	s.EnqueueFeedChecks()
}

func (s *Scheduler) enqueueShowsReload() TaskInterface {
	task := NewReloadShowsTask("", s.configCache)
	if !s.markInFlight(task) {
		slog.Debug("Shows reload already pending, skipping")
		return nil
	}

	if err := s.EnqueueTask(task); err != nil {
		s.clearInFlight(task)
		slog.Warn("Failed to enqueue ReloadShowsTask", "error", err)
		return nil
	}

	return task
}

func (s *Scheduler) EnqueueFeedChecks() []TaskInterface {
	var enqueued []TaskInterface

	for _, feedURL := range s.opts.FeedURLs {
		task := NewCheckFeedTask(feedURL, s.configCache, s.httpClient, s.parser, s.selector,
			s.feedRepo, s.episodeRepo, s.submitter, s.opts.FeedCheck)
		if !s.markInFlight(task) {
			slog.Debug("Feed check already pending, skipping", "feed", feedURL)
			continue
		}

		if err := s.EnqueueTask(task); err != nil {
			s.clearInFlight(task)
			slog.Warn("Failed to enqueue CheckFeedTask", "feed", feedURL, "error", err)
			continue
		}

		enqueued = append(enqueued, task)
	}

	return enqueued
}

func inFlightKey(task TaskInterface) string {
	return string(task.GetType()) + ":" + task.GetTarget()
}

func (s *Scheduler) markInFlight(task TaskInterface) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := inFlightKey(task)
	if s.inFlight[key] {
		return false
	}
	s.inFlight[key] = true
	return true
}

func (s *Scheduler) clearInFlight(task TaskInterface) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, inFlightKey(task))
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		s.clearInFlight(task)
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		s.clearInFlight(task)
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		return
	}

	task.IncrementRetryCount()
	retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
	if retryDelay > 30*time.Second {
		retryDelay = 30 * time.Second
	}

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "target", task.GetTarget(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
			s.clearInFlight(task)
		case <-time.After(retryDelay):
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				s.clearInFlight(task)
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
			}
		}
	}()
}
