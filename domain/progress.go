package domain

// ProgressManager creates progress trackers for long-running work
type ProgressManager interface {
	StartTask(description string, total int) TaskProgress
	IsInteractive() bool
	Close()
}

// TaskProgress tracks a single unit of progress
type TaskProgress interface {
	Increment(n int)
	Describe(description string)
	Complete()
}
