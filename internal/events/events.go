package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/objectdesk/objectdesk/internal/constants"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	EventLog EventType = "log"

	// Browser events
	EventListingChanged   EventType = "listing_changed"   // Loaded set or view changed
	EventListingFailed    EventType = "listing_failed"    // A listing call failed
	EventSelectionChanged EventType = "selection_changed" // Primary or selected set changed
	EventSearchState      EventType = "search_state"      // Deep-link search started/progressed/ended
	EventNavigated        EventType = "navigated"         // Bucket or prefix changed
	EventRefreshRequested EventType = "refresh_requested" // Reload current location

	// Transfer events
	EventTransferQueued    EventType = "transfer_queued"
	EventTransferStarted   EventType = "transfer_started"
	EventTransferProgress  EventType = "transfer_progress"
	EventTransferCompleted EventType = "transfer_completed"
	EventTransferFailed    EventType = "transfer_failed"
	EventTransferCancelled EventType = "transfer_cancelled"
)

// LogLevel defines log severity levels
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

func base(t EventType) BaseEvent {
	return BaseEvent{EventType: t, Time: time.Now()}
}

// LogEvent represents log messages surfaced to the UI
type LogEvent struct {
	BaseEvent
	Level     LogLevel
	Message   string
	Component string
}

// ListingEvent describes the listing state after a change
type ListingEvent struct {
	BaseEvent
	Bucket      string
	Prefix      string
	Displayed   int
	Loaded      int
	HasMore     bool
	Loading     bool
	LoadingMore bool
}

// ListingFailedEvent carries the inline error shown above the list
type ListingFailedEvent struct {
	BaseEvent
	Bucket  string
	Prefix  string
	Message string
}

// SelectionEvent describes the selection after a change.
// Primary is empty when nothing is selected.
type SelectionEvent struct {
	BaseEvent
	Primary string
	Keys    []string
}

// SearchOutcome is the terminal state of a deep-link search
type SearchOutcome string

const (
	SearchPending   SearchOutcome = ""
	SearchFound     SearchOutcome = "found"
	SearchExhausted SearchOutcome = "exhausted"
	SearchCancelled SearchOutcome = "cancelled"
)

// SearchEvent reports deep-link search progress
type SearchEvent struct {
	BaseEvent
	Key       string
	Searching bool
	Scanned   int
	Outcome   SearchOutcome
}

// NavigatedEvent is published after the controller moves to a new location
type NavigatedEvent struct {
	BaseEvent
	Bucket string
	Prefix string
}

// RefreshEvent asks the browser to reload its current location
type RefreshEvent struct {
	BaseEvent
	Reason string
}

// TransferEvent represents upload/download lifecycle events
type TransferEvent struct {
	BaseEvent
	TaskID    string
	Kind      string // "upload" or "download"
	Name      string
	LocalPath string
	Size      int64
	Progress  float64 // 0.0 to 1.0
	Speed     float64 // bytes/sec, smoothed
	Error     error
}

// NewListingEvent builds a listing_changed event
func NewListingEvent(bucket, prefix string, displayed, loaded int, hasMore, loading, loadingMore bool) *ListingEvent {
	return &ListingEvent{
		BaseEvent:   base(EventListingChanged),
		Bucket:      bucket,
		Prefix:      prefix,
		Displayed:   displayed,
		Loaded:      loaded,
		HasMore:     hasMore,
		Loading:     loading,
		LoadingMore: loadingMore,
	}
}

// NewListingFailedEvent builds a listing_failed event
func NewListingFailedEvent(bucket, prefix, message string) *ListingFailedEvent {
	return &ListingFailedEvent{BaseEvent: base(EventListingFailed), Bucket: bucket, Prefix: prefix, Message: message}
}

// NewSelectionEvent builds a selection_changed event
func NewSelectionEvent(primary string, keys []string) *SelectionEvent {
	return &SelectionEvent{BaseEvent: base(EventSelectionChanged), Primary: primary, Keys: keys}
}

// NewSearchEvent builds a search_state event
func NewSearchEvent(key string, searching bool, scanned int, outcome SearchOutcome) *SearchEvent {
	return &SearchEvent{BaseEvent: base(EventSearchState), Key: key, Searching: searching, Scanned: scanned, Outcome: outcome}
}

// NewNavigatedEvent builds a navigated event
func NewNavigatedEvent(bucket, prefix string) *NavigatedEvent {
	return &NavigatedEvent{BaseEvent: base(EventNavigated), Bucket: bucket, Prefix: prefix}
}

// NewTransferEvent builds a transfer event of the given type
func NewTransferEvent(t EventType, taskID, kind, name string, size int64, progress float64, err error) *TransferEvent {
	return &TransferEvent{
		BaseEvent: base(t),
		TaskID:    taskID,
		Kind:      kind,
		Name:      name,
		Size:      size,
		Progress:  progress,
		Error:     err,
	}
}

// EventBus fans events out to buffered subscriber channels. Publishing never
// blocks: an event that does not fit a subscriber's buffer is dropped for
// that subscriber and counted.
type EventBus struct {
	mu         sync.RWMutex
	subs       []*subscription
	bufferSize int
	closed     bool
	dropped    atomic.Int64
}

// subscription receives the listed types, or every type when types is nil.
type subscription struct {
	ch    chan Event
	types map[EventType]struct{}
}

func (s *subscription) wants(t EventType) bool {
	if s.types == nil {
		return true
	}
	_, ok := s.types[t]
	return ok
}

// NewEventBus creates a bus whose subscriber channels hold bufferSize events,
// clamped to the configured bounds.
func NewEventBus(bufferSize int) *EventBus {
	switch {
	case bufferSize <= 0:
		bufferSize = constants.EventBusDefaultBuffer
	case bufferSize > constants.EventBusMaxBuffer:
		bufferSize = constants.EventBusMaxBuffer
	}
	return &EventBus{bufferSize: bufferSize}
}

// Subscribe returns a channel receiving events of the given types. On a
// closed bus the channel comes back already closed.
func (eb *EventBus) Subscribe(types ...EventType) <-chan Event {
	set := make(map[EventType]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return eb.add(set)
}

// SubscribeAll returns a channel receiving every event.
func (eb *EventBus) SubscribeAll() <-chan Event {
	return eb.add(nil)
}

func (eb *EventBus) add(types map[EventType]struct{}) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}
	sub := &subscription{ch: make(chan Event, eb.bufferSize), types: types}
	eb.subs = append(eb.subs, sub)
	return sub.ch
}

// Unsubscribe detaches ch and closes it. Unknown channels are ignored.
func (eb *EventBus) Unsubscribe(ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for i, sub := range eb.subs {
		if (<-chan Event)(sub.ch) != ch {
			continue
		}
		eb.subs = append(eb.subs[:i], eb.subs[i+1:]...)
		close(sub.ch)
		return
	}
}

// Publish delivers event to every interested subscriber.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}
	for _, sub := range eb.subs {
		if !sub.wants(event.Type()) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			eb.dropped.Add(1)
		}
	}
}

// Close closes every subscriber channel. Later publishes are ignored.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}
	eb.closed = true
	for _, sub := range eb.subs {
		close(sub.ch)
	}
	eb.subs = nil
}

// Dropped is the number of deliveries skipped because a buffer was full.
func (eb *EventBus) Dropped() int64 {
	return eb.dropped.Load()
}

// PublishLog publishes a LogEvent.
func (eb *EventBus) PublishLog(level LogLevel, message, component string) {
	eb.Publish(&LogEvent{
		BaseEvent: base(EventLog),
		Level:     level,
		Message:   message,
		Component: component,
	})
}

// RequestRefresh asks every refresh subscriber to reload its current location.
func (eb *EventBus) RequestRefresh(reason string) {
	eb.Publish(&RefreshEvent{BaseEvent: base(EventRefreshRequested), Reason: reason})
}

// OnRefresh runs fn for every refresh request until the returned stop func is
// called or the bus is closed. stop may be called more than once.
func (eb *EventBus) OnRefresh(fn func()) (stop func()) {
	ch := eb.Subscribe(EventRefreshRequested)
	go func() {
		for range ch {
			fn()
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { eb.Unsubscribe(ch) })
	}
}
