package config

import "time"

const (
	// MaxFilestoreNameLength is the maximum length for filestore display
	// names. Limited to 255 to fit in PostgreSQL VARCHAR(255) and provide
	// reasonable UX (names should be short and descriptive).
	MaxFilestoreNameLength = 255

	// MaxDisplayNameLength is the maximum length for document display names
	// (the original upload filename). Same bound as filestore names.
	MaxDisplayNameLength = 255

	// MaxCategoryLength is the maximum length for the caller-supplied
	// category label attached to a document.
	MaxCategoryLength = 100

	// MaxUploadBytes bounds a single multipart ingest request.
	MaxUploadBytes = 100 << 20 // 100 MB

	// UploadBatchSize is how many pending documents the worker claims per
	// loop iteration.
	UploadBatchSize = 10

	// UploadPollInterval is the delay between polls of a remote upload
	// operation that has not finished yet.
	UploadPollInterval = 5 * time.Second

	// RetryPollInterval is how often a retry request re-reads the document
	// while waiting for the worker to pick it back up.
	RetryPollInterval = 2 * time.Second

	// RetryWaitTimeout bounds the retry wait overall; when it elapses the
	// request returns the row as-is.
	RetryWaitTimeout = 30 * time.Second

	// ReportExampleLimit caps the example documents listed per section of a
	// reconciliation report.
	ReportExampleLimit = 5

	// MaxLogFiles is how many timestamped log files to retain in LOG_DIR.
	MaxLogFiles = 10
)
