package tasks

// TaskSchedulerInterface defines the interface for task scheduling operations.
// The daemon starts and stops it; the API uses it to queue work on demand.
// Example usage:
//
//	scheduler := NewScheduler(configCache, feedRepo, episodeRepo, httpClient, parser, selector, submitter, opts)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewReloadShowsTask("frieren", configCache))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	// EnqueueFeedChecks queues a check of every configured feed that is not
	// already queued or running, and returns the queued tasks.
	EnqueueFeedChecks() []TaskInterface
}
