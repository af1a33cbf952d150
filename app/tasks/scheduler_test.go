package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JetpackDuba/NyaaParser/app/feed"
)

type mockTask struct {
	Task
	calls  atomic.Int32
	failN  int32 // fail this many times before succeeding
	done   chan struct{}
	closed atomic.Bool
}

func newMockTask(taskType TaskType, target string, failN int32) *mockTask {
	return &mockTask{
		Task:  NewTask(taskType, target),
		failN: failN,
		done:  make(chan struct{}),
	}
}

func (m *mockTask) Execute(ctx context.Context) error {
	n := m.calls.Add(1)
	if n <= m.failN {
		return errors.New("mock failure")
	}
	if m.closed.CompareAndSwap(false, true) {
		close(m.done)
	}
	return nil
}

func newTestScheduler(t *testing.T, feedURLs ...string) *Scheduler {
	t.Helper()
	return NewScheduler(feed.NewConfigCache(t.TempDir()), nil, nil, nil, nil, nil, nil, SchedulerOptions{
		FeedURLs:    feedURLs,
		Interval:    time.Hour,
		WorkerCount: 2,
	})
}

func TestNewSchedulerDefaults(t *testing.T) {
	scheduler := NewScheduler(nil, nil, nil, nil, nil, nil, nil, SchedulerOptions{})

	if scheduler.opts.WorkerCount != 1 {
		t.Errorf("Expected default worker count 1, got %d", scheduler.opts.WorkerCount)
	}
	if scheduler.opts.Interval != 2*time.Minute {
		t.Errorf("Expected default interval 2m, got %v", scheduler.opts.Interval)
	}
}

func TestSchedulerExecutesTasks(t *testing.T) {
	scheduler := newTestScheduler(t)
	scheduler.Start()
	defer scheduler.Stop()

	task := newMockTask(TaskTypeReloadShows, "frieren", 0)
	if err := scheduler.EnqueueTask(task); err != nil {
		t.Fatal(err)
	}

	select {
	case <-task.done:
	case <-time.After(5 * time.Second):
		t.Fatal("Expected task to be executed")
	}

	if task.StartedAt == nil {
		t.Error("Expected task to be started")
	}
}

func TestSchedulerRetriesFailedTasks(t *testing.T) {
	scheduler := newTestScheduler(t)
	scheduler.Start()
	defer scheduler.Stop()

	task := newMockTask(TaskTypeReloadShows, "", 1)
	if err := scheduler.EnqueueTask(task); err != nil {
		t.Fatal(err)
	}

	select {
	case <-task.done:
	case <-time.After(5 * time.Second):
		t.Fatal("Expected task to succeed on retry")
	}

	if task.GetRetryCount() != 1 {
		t.Errorf("Expected retry count 1, got %d", task.GetRetryCount())
	}
}

func TestSchedulerEnqueueAfterStop(t *testing.T) {
	scheduler := newTestScheduler(t)
	scheduler.Start()
	scheduler.Stop()

	err := scheduler.EnqueueTask(newMockTask(TaskTypeReloadShows, "", 0))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled after stop, got: %v", err)
	}
}

func TestSchedulerQueueFull(t *testing.T) {
	scheduler := newTestScheduler(t)

	var err error
	for i := 0; i <= cap(scheduler.taskQueue); i++ {
		err = scheduler.EnqueueTask(newMockTask(TaskTypeReloadShows, "", 0))
	}
	if err == nil {
		t.Error("Expected error when the queue is full")
	}
}

func TestSchedulerEnqueueFeedChecksSkipsPending(t *testing.T) {
	feedA := "https://nyaa.si/?page=rss"
	feedB := "https://nyaa.si/?page=rss&c=1_2"
	scheduler := newTestScheduler(t, feedA, feedB)

	first := scheduler.EnqueueFeedChecks()
	if len(first) != 2 {
		t.Fatalf("Expected 2 feed checks, got %d", len(first))
	}
	for _, task := range first {
		if task.GetType() != TaskTypeCheckFeed {
			t.Errorf("Expected check_feed task, got %s", task.GetType())
		}
	}

	if second := scheduler.EnqueueFeedChecks(); len(second) != 0 {
		t.Errorf("Expected pending feeds to be skipped, got %d tasks", len(second))
	}

	// Finishing a check frees its feed.
	scheduler.executeTask(0, newMockTask(TaskTypeCheckFeed, feedA, 0))

	third := scheduler.EnqueueFeedChecks()
	if len(third) != 1 {
		t.Fatalf("Expected 1 feed check after completion, got %d", len(third))
	}
	if third[0].GetTarget() != feedA {
		t.Errorf("Expected check of %s, got %s", feedA, third[0].GetTarget())
	}
}

func TestSchedulerExhaustedRetriesFreeFeed(t *testing.T) {
	feedURL := "https://nyaa.si/?page=rss"
	scheduler := newTestScheduler(t, feedURL)

	if len(scheduler.EnqueueFeedChecks()) != 1 {
		t.Fatal("Expected 1 feed check")
	}

	task := newMockTask(TaskTypeCheckFeed, feedURL, 100)
	task.RetryCount = task.MaxRetries
	scheduler.executeTask(0, task)

	if len(scheduler.EnqueueFeedChecks()) != 1 {
		t.Error("Expected feed to be checkable again after retries are exhausted")
	}
}

func TestSchedulerTickReloadsShowsBeforeFeedChecks(t *testing.T) {
	feedURL := "https://nyaa.si/?page=rss"
	scheduler := newTestScheduler(t, feedURL)

	scheduler.enqueueTick()

	if len(scheduler.taskQueue) != 2 {
		t.Fatalf("Expected 2 queued tasks, got %d", len(scheduler.taskQueue))
	}
	first := <-scheduler.taskQueue
	if first.GetType() != TaskTypeReloadShows || first.GetTarget() != "" {
		t.Errorf("Expected full shows reload first, got %s '%s'", first.GetType(), first.GetTarget())
	}
	second := <-scheduler.taskQueue
	if second.GetType() != TaskTypeCheckFeed || second.GetTarget() != feedURL {
		t.Errorf("Expected check of %s second, got %s '%s'", feedURL, second.GetType(), second.GetTarget())
	}

	// Both are still pending, so the next tick adds nothing.
	scheduler.enqueueTick()
	if len(scheduler.taskQueue) != 0 {
		t.Errorf("Expected pending tasks to be skipped, got %d queued", len(scheduler.taskQueue))
	}

	scheduler.executeTask(0, first)
	if scheduler.enqueueShowsReload() == nil {
		t.Error("Expected shows reload to be queued again once the previous one finished")
	}
}

func TestSchedulerReloadDropsDeletedShow(t *testing.T) {
	showsDir := t.TempDir()
	showFile := filepath.Join(showsDir, "frieren.yml")
	show := `
download_path: "/data/anime/frieren"
enabled: true
fansubs:
  - name: "Sousou no Frieren"
    fansub: "SubsPlease"
`
	if err := os.WriteFile(showFile, []byte(show), 0644); err != nil {
		t.Fatal(err)
	}

	configCache := feed.NewConfigCache(showsDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}
	if len(configCache.GetEnabledConfigs()) != 1 {
		t.Fatalf("Expected 1 enabled show, got %d", len(configCache.GetEnabledConfigs()))
	}

	if err := os.Remove(showFile); err != nil {
		t.Fatal(err)
	}

	scheduler := NewScheduler(configCache, nil, nil, nil, nil, nil, nil, SchedulerOptions{Interval: time.Hour})
	task := scheduler.enqueueShowsReload()
	if task == nil {
		t.Fatal("Expected shows reload to be queued")
	}
	scheduler.executeTask(0, <-scheduler.taskQueue)

	if len(configCache.GetEnabledConfigs()) != 0 {
		t.Errorf("Expected deleted show to be dropped, got %d enabled shows", len(configCache.GetEnabledConfigs()))
	}
}
