package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event represents a telemetry event in the datanorm system.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Source identifies where the event originated.
	Source string `json:"source"`

	// RunID is the associated load-run ID, if applicable.
	RunID string `json:"run_id,omitempty"`

	// Loader is the associated loader name, if applicable.
	Loader string `json:"loader,omitempty"`

	// Dataset is the associated dataset ID, if applicable.
	Dataset string `json:"dataset,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventType constants for common event types.
const (
	EventTypeLoadStarted     = "load.started"
	EventTypeLoadCompleted   = "load.completed"
	EventTypeLoadFailed      = "load.failed"
	EventTypeStageCompleted  = "stage.completed"
	EventTypeTranslationMiss = "translation.miss"
	EventTypeRollupMismatch  = "rollup.mismatch"
	EventTypeRawFileChanged  = "raw_file.changed"
	EventTypePolicyViolation = "policy.violation"
	EventTypeCacheEvicted    = "cache.evicted"
	EventTypeError           = "error"
)

// EventLevel constants for event severity.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be processed.
type EventFilter func(event Event) bool

// EventPublisher manages event publishing and subscriptions.
type EventPublisher struct {
	config      EventsConfig
	buffer      chan Event
	subscribers []subscriberEntry
	filters     []EventFilter
	wg          sync.WaitGroup
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventPublisher creates a new event publisher with the given configuration.
func NewEventPublisher(cfg EventsConfig) (*EventPublisher, error) {
	if !cfg.Enabled {
		return &EventPublisher{config: cfg}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	ep := &EventPublisher{
		config:      cfg,
		buffer:      make(chan Event, cfg.BufferSize),
		subscribers: make([]subscriberEntry, 0),
		filters:     make([]EventFilter, 0),
		ctx:         ctx,
		cancel:      cancel,
	}

	if cfg.EnableAsync {
		ep.wg.Add(1)
		go ep.processEvents()
	}

	if cfg.FlushInterval > 0 {
		ep.wg.Add(1)
		go ep.periodicFlush()
	}

	return ep, nil
}

// Publish publishes an event to all subscribers.
func (ep *EventPublisher) Publish(event Event) error {
	if !ep.config.Enabled {
		return nil
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	ep.mu.RLock()
	for _, filter := range ep.filters {
		if !filter(event) {
			ep.mu.RUnlock()
			return nil
		}
	}
	ep.mu.RUnlock()

	if ep.config.EnableAsync {
		select {
		case ep.buffer <- event:
			return nil
		case <-ep.ctx.Done():
			return fmt.Errorf("event publisher stopped")
		default:
			return fmt.Errorf("event buffer full, event dropped")
		}
	}

	ep.deliverEvent(event)
	return nil
}

// PublishLoadStarted publishes a load started event.
func (ep *EventPublisher) PublishLoadStarted(runID, loader string) error {
	return ep.Publish(Event{
		Type:    EventTypeLoadStarted,
		Source:  "loader",
		RunID:   runID,
		Loader:  loader,
		Message: fmt.Sprintf("Load %s started for loader %s", runID, loader),
		Level:   EventLevelInfo,
	})
}

// PublishLoadCompleted publishes a load completed event.
func (ep *EventPublisher) PublishLoadCompleted(runID, loader string, rows int, duration time.Duration) error {
	return ep.Publish(Event{
		Type:    EventTypeLoadCompleted,
		Source:  "loader",
		RunID:   runID,
		Loader:  loader,
		Message: fmt.Sprintf("Load %s completed: %d rows", runID, rows),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"rows":     rows,
			"duration": duration.Seconds(),
		},
	})
}

// PublishLoadFailed publishes a load failed event.
func (ep *EventPublisher) PublishLoadFailed(runID, loader, reason string) error {
	return ep.Publish(Event{
		Type:    EventTypeLoadFailed,
		Source:  "loader",
		RunID:   runID,
		Loader:  loader,
		Message: fmt.Sprintf("Load %s failed: %s", runID, reason),
		Level:   EventLevelError,
		Data: map[string]interface{}{
			"reason": reason,
		},
	})
}

// PublishStageCompleted publishes a stage completed event.
func (ep *EventPublisher) PublishStageCompleted(runID, loader, stage string, duration time.Duration) error {
	return ep.Publish(Event{
		Type:    EventTypeStageCompleted,
		Source:  "loader",
		RunID:   runID,
		Loader:  loader,
		Message: fmt.Sprintf("Stage %s completed for load %s", stage, runID),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"stage":    stage,
			"duration": duration.Seconds(),
		},
	})
}

// PublishTranslationMiss publishes a translation miss event.
func (ep *EventPublisher) PublishTranslationMiss(labelset, value, fromAxis, toAxis string) error {
	return ep.Publish(Event{
		Type:    EventTypeTranslationMiss,
		Source:  "labels",
		Message: fmt.Sprintf("Value %q has no entry mapping %s to %s in %s", value, fromAxis, toAxis, labelset),
		Level:   EventLevelWarning,
		Data: map[string]interface{}{
			"labelset": labelset,
			"value":    value,
			"from":     fromAxis,
			"to":       toAxis,
		},
	})
}

// PublishRollupMismatch publishes a hierarchy reconciliation mismatch event.
// Rollup reconciliation is a soft guarantee, so the level is warning.
func (ep *EventPublisher) PublishRollupMismatch(dataset, parent string, parentValue, childSum float64) error {
	return ep.Publish(Event{
		Type:    EventTypeRollupMismatch,
		Source:  "labels",
		Dataset: dataset,
		Message: fmt.Sprintf("Children of %s sum to %g, parent reports %g", parent, childSum, parentValue),
		Level:   EventLevelWarning,
		Data: map[string]interface{}{
			"parent":       parent,
			"parent_value": parentValue,
			"child_sum":    childSum,
		},
	})
}

// PublishRawFileChanged publishes a watched raw-file change event.
func (ep *EventPublisher) PublishRawFileChanged(loader, path string) error {
	return ep.Publish(Event{
		Type:    EventTypeRawFileChanged,
		Source:  "watcher",
		Loader:  loader,
		Message: fmt.Sprintf("Raw file changed: %s", path),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"path": path,
		},
	})
}

// PublishPolicyViolation publishes a policy violation event.
func (ep *EventPublisher) PublishPolicyViolation(dataset, policyName, reason string) error {
	return ep.Publish(Event{
		Type:    EventTypePolicyViolation,
		Source:  "policy",
		Dataset: dataset,
		Message: fmt.Sprintf("Policy violation on dataset %s: %s - %s", dataset, policyName, reason),
		Level:   EventLevelError,
		Data: map[string]interface{}{
			"policy": policyName,
			"reason": reason,
		},
	})
}

// Subscribe adds a new event subscriber.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.subscribers = append(ep.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

// AddFilter adds a global event filter.
func (ep *EventPublisher) AddFilter(filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.filters = append(ep.filters, filter)
}

// processEvents processes events from the buffer asynchronously.
func (ep *EventPublisher) processEvents() {
	defer ep.wg.Done()

	batch := make([]Event, 0, ep.config.MaxBatchSize)

	for {
		select {
		case event := <-ep.buffer:
			batch = append(batch, event)

			if len(batch) >= ep.config.MaxBatchSize {
				ep.flushBatch(batch)
				batch = make([]Event, 0, ep.config.MaxBatchSize)
			}

		case <-ep.ctx.Done():
			// Flush remaining events before shutting down
			if len(batch) > 0 {
				ep.flushBatch(batch)
			}
			return
		}
	}
}

// periodicFlush flushes events periodically.
func (ep *EventPublisher) periodicFlush() {
	defer ep.wg.Done()

	ticker := time.NewTicker(ep.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Draining is handled by the processEvents goroutine
		case <-ep.ctx.Done():
			return
		}
	}
}

// flushBatch delivers a batch of events to subscribers.
func (ep *EventPublisher) flushBatch(events []Event) {
	for _, event := range events {
		ep.deliverEvent(event)
	}
}

// deliverEvent delivers an event to all subscribers.
func (ep *EventPublisher) deliverEvent(event Event) {
	ep.mu.RLock()
	defer ep.mu.RUnlock()

	for _, entry := range ep.subscribers {
		if entry.filter != nil && !entry.filter(event) {
			continue
		}

		// Called in a goroutine to avoid blocking delivery
		go entry.subscriber(event)
	}
}

// Shutdown gracefully shuts down the event publisher.
func (ep *EventPublisher) Shutdown(ctx context.Context) error {
	if !ep.config.Enabled {
		return nil
	}

	ep.cancel()

	done := make(chan struct{})
	go func() {
		ep.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event publisher shutdown timeout")
	}
}

// Common event filters.

// FilterByLevel creates a filter that only allows events of a specific level or higher.
func FilterByLevel(minLevel string) EventFilter {
	levels := map[string]int{
		EventLevelInfo:    0,
		EventLevelWarning: 1,
		EventLevelError:   2,
	}

	minLevelValue := levels[minLevel]

	return func(event Event) bool {
		return levels[event.Level] >= minLevelValue
	}
}

// FilterByType creates a filter that only allows events of specific types.
func FilterByType(types ...string) EventFilter {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	return func(event Event) bool {
		return typeSet[event.Type]
	}
}

// FilterByRunID creates a filter that only allows events for a specific load run.
func FilterByRunID(runID string) EventFilter {
	return func(event Event) bool {
		return event.RunID == runID
	}
}

// FilterByLoader creates a filter that only allows events for a specific loader.
func FilterByLoader(loader string) EventFilter {
	return func(event Event) bool {
		return event.Loader == loader
	}
}
