package constants

import (
	"time"
)

// Listing limits
const (
	// DefaultMaxKeys - page size requested from the listing API (S3 caps at 1000)
	DefaultMaxKeys = 1000

	// MinMaxKeys - smallest page size accepted from configuration
	MinMaxKeys = 1

	// Delimiter - separator used for hierarchical listing
	Delimiter = "/"
)

// Browser behaviour
const (
	// ScrollLoadThreshold - rows from the end of the displayed list at which
	// the next page is requested
	ScrollLoadThreshold = 10

	// DoubleClickInterval - two clicks on the same row within this window
	// count as a double click
	DoubleClickInterval = 400 * time.Millisecond

	// PreviewMaxBytes - largest object opened in the inline viewer/editor (5 MB)
	PreviewMaxBytes = 5 * 1024 * 1024
)

// Event bus sizing
const (
	// EventBusDefaultBuffer - per-subscriber channel capacity
	EventBusDefaultBuffer = 256

	// EventBusMaxBuffer - upper bound accepted by NewEventBus
	EventBusMaxBuffer = 10000
)

// HTTP transport
const (
	// HTTPDialTimeout - TCP connect timeout
	HTTPDialTimeout = 30 * time.Second

	// HTTPKeepAlive - TCP keep-alive interval
	HTTPKeepAlive = 30 * time.Second

	// HTTPTLSHandshakeTimeout - TLS handshake timeout
	HTTPTLSHandshakeTimeout = 15 * time.Second

	// HTTPResponseHeaderTimeout - time to wait for response headers
	HTTPResponseHeaderTimeout = 60 * time.Second

	// HTTPIdleConnTimeout - idle keep-alive connections are closed after this
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPMaxIdleConnsPerHost - pooled connections per storage endpoint
	HTTPMaxIdleConnsPerHost = 32
)

// Retry configuration
const (
	// MaxRetries - maximum number of retries for transient errors
	MaxRetries = 5

	// RetryInitialDelay - initial delay before first retry (200ms)
	RetryInitialDelay = 200 * time.Millisecond

	// RetryMaxDelay - maximum delay between retries (15s)
	RetryMaxDelay = 15 * time.Second
)

// Rate limiting
const (
	// ListRequestsPerSecond - sustained listing calls per second per client
	ListRequestsPerSecond = 20

	// ListBurst - listing calls allowed in a burst
	ListBurst = 40

	// RefreshDebounce - quiet period before completed uploads trigger a reload
	RefreshDebounce = 500 * time.Millisecond
)

// Disk space safety margin
const (
	// DiskSpaceBufferPercent - extra space required beyond the download size (15%)
	DiskSpaceBufferPercent = 0.15
)

// Logging
const (
	// LogFileName - rotating log file written in the log directory
	LogFileName = "objectdesk.log"

	// LogMaxSizeMB - size at which the log file rotates
	LogMaxSizeMB = 10

	// LogMaxBackups - rotated files kept on disk
	LogMaxBackups = 5

	// LogMaxAgeDays - rotated files older than this are removed
	LogMaxAgeDays = 30
)

// Transfers
const (
	// DefaultMaxConcurrent - transfers running at once per service
	DefaultMaxConcurrent = 5

	// MaxMaxConcurrent - upper bound accepted for --max-concurrent
	MaxMaxConcurrent = 32

	// PartialDownloadSuffix - suffix of a download still in progress
	PartialDownloadSuffix = ".part"
)
