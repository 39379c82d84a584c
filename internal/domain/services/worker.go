package services

// UploadWorker drains pending documents into the remote index on a
// background goroutine. At most one run is active per process; implementations
// must be safe for concurrent use.
type UploadWorker interface {
	// Kick starts a run when idle and reports whether a new run started.
	// Calling it while a run is active is a safe no-op.
	Kick() bool

	// Running reports whether a run is currently active
	Running() bool

	// Stop requests a graceful stop after the current document finishes.
	// It does not wait for the run to exit.
	Stop()
}
