// Package domain defines events for the event-driven architecture.
// Events decouple the visualizer engine and the player from the views that paint them.
package domain

import (
	"time"
)

// Event is the base interface for all events in the system.
// All events must implement this interface to be published via the event bus.
type Event interface {
	// Type returns the event type identifier
	Type() EventType

	// Timestamp returns when the event occurred
	Timestamp() time.Time
}

// EventType is a string identifier for different event types.
type EventType string

// Event type constants define all possible events in the system.
const (
	// Visualizer events
	EventVisualizerStateChanged EventType = "visualizer.state_changed"
	EventLevelsUpdated          EventType = "visualizer.levels_updated"
	EventTapAcquired            EventType = "visualizer.tap_acquired"
	EventTapReleased            EventType = "visualizer.tap_released"

	// Playback events
	EventSourceLoaded   EventType = "source.loaded"
	EventSourceError    EventType = "source.error"
	EventTrackStarted   EventType = "track.started"
	EventTrackPaused    EventType = "track.paused"
	EventTrackStopped   EventType = "track.stopped"
	EventTrackCompleted EventType = "track.completed"
	EventStatusChanged  EventType = "playback.status_changed"
)

// EventHandler is a function that handles events.
type EventHandler func(event Event)

// SubscriptionID uniquely identifies an event subscription.
type SubscriptionID string

// baseEvent provides common event functionality.
// All concrete events should embed this struct.
type baseEvent struct {
	timestamp time.Time
}

// Timestamp returns when the event occurred.
func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

// newBaseEvent creates a new base event with the current timestamp.
func newBaseEvent() baseEvent {
	return baseEvent{timestamp: time.Now()}
}

// VisualizerStateChangedEvent is published when the caller switches the visualizer state.
type VisualizerStateChangedEvent struct {
	baseEvent
	Previous VisualizerState
	Current  VisualizerState
	SourceID string // Empty when no source is attached
}

// Type returns the event type.
func (e VisualizerStateChangedEvent) Type() EventType {
	return EventVisualizerStateChanged
}

// NewVisualizerStateChangedEvent creates a new VisualizerStateChangedEvent.
func NewVisualizerStateChangedEvent(previous, current VisualizerState, sourceID string) VisualizerStateChangedEvent {
	return VisualizerStateChangedEvent{
		baseEvent: newBaseEvent(),
		Previous:  previous,
		Current:   current,
		SourceID:  sourceID,
	}
}

// LevelsUpdatedEvent carries a complete bar-height snapshot.
// Snapshots are published in frame order; Levels is owned by the receiver.
type LevelsUpdatedEvent struct {
	baseEvent
	State  VisualizerState
	Levels Levels
	Frame  uint64
}

// Type returns the event type.
func (e LevelsUpdatedEvent) Type() EventType {
	return EventLevelsUpdated
}

// NewLevelsUpdatedEvent creates a new LevelsUpdatedEvent.
func NewLevelsUpdatedEvent(state VisualizerState, levels Levels, frame uint64) LevelsUpdatedEvent {
	return LevelsUpdatedEvent{
		baseEvent: newBaseEvent(),
		State:     state,
		Levels:    levels,
		Frame:     frame,
	}
}

// TapAcquiredEvent is published when an analysis tap is attached to a source.
type TapAcquiredEvent struct {
	baseEvent
	SourceID string
	Bins     int
}

// Type returns the event type.
func (e TapAcquiredEvent) Type() EventType {
	return EventTapAcquired
}

// NewTapAcquiredEvent creates a new TapAcquiredEvent.
func NewTapAcquiredEvent(sourceID string, bins int) TapAcquiredEvent {
	return TapAcquiredEvent{
		baseEvent: newBaseEvent(),
		SourceID:  sourceID,
		Bins:      bins,
	}
}

// TapReleasedEvent is published when an analysis tap is disconnected.
type TapReleasedEvent struct {
	baseEvent
	SourceID string
}

// Type returns the event type.
func (e TapReleasedEvent) Type() EventType {
	return EventTapReleased
}

// NewTapReleasedEvent creates a new TapReleasedEvent.
func NewTapReleasedEvent(sourceID string) TapReleasedEvent {
	return TapReleasedEvent{
		baseEvent: newBaseEvent(),
		SourceID:  sourceID,
	}
}

// SourceLoadedEvent is published when a source has been opened and decoded.
type SourceLoadedEvent struct {
	baseEvent
	Info SourceInfo
}

// Type returns the event type.
func (e SourceLoadedEvent) Type() EventType {
	return EventSourceLoaded
}

// NewSourceLoadedEvent creates a new SourceLoadedEvent.
func NewSourceLoadedEvent(info SourceInfo) SourceLoadedEvent {
	return SourceLoadedEvent{
		baseEvent: newBaseEvent(),
		Info:      info,
	}
}

// SourceErrorEvent is published when a source cannot be opened or played.
type SourceErrorEvent struct {
	baseEvent
	Path  string
	Error error
}

// Type returns the event type.
func (e SourceErrorEvent) Type() EventType {
	return EventSourceError
}

// NewSourceErrorEvent creates a new SourceErrorEvent.
func NewSourceErrorEvent(path string, err error) SourceErrorEvent {
	return SourceErrorEvent{
		baseEvent: newBaseEvent(),
		Path:      path,
		Error:     err,
	}
}

// TrackStartedEvent is published when playback starts or resumes.
type TrackStartedEvent struct {
	baseEvent
	Info SourceInfo
}

// Type returns the event type.
func (e TrackStartedEvent) Type() EventType {
	return EventTrackStarted
}

// NewTrackStartedEvent creates a new TrackStartedEvent.
func NewTrackStartedEvent(info SourceInfo) TrackStartedEvent {
	return TrackStartedEvent{
		baseEvent: newBaseEvent(),
		Info:      info,
	}
}

// TrackPausedEvent is published when playback is paused.
type TrackPausedEvent struct {
	baseEvent
	Info SourceInfo
}

// Type returns the event type.
func (e TrackPausedEvent) Type() EventType {
	return EventTrackPaused
}

// NewTrackPausedEvent creates a new TrackPausedEvent.
func NewTrackPausedEvent(info SourceInfo) TrackPausedEvent {
	return TrackPausedEvent{
		baseEvent: newBaseEvent(),
		Info:      info,
	}
}

// TrackStoppedEvent is published when playback is stopped by the user.
type TrackStoppedEvent struct {
	baseEvent
	Info SourceInfo
}

// Type returns the event type.
func (e TrackStoppedEvent) Type() EventType {
	return EventTrackStopped
}

// NewTrackStoppedEvent creates a new TrackStoppedEvent.
func NewTrackStoppedEvent(info SourceInfo) TrackStoppedEvent {
	return TrackStoppedEvent{
		baseEvent: newBaseEvent(),
		Info:      info,
	}
}

// TrackCompletedEvent is published when a source plays to its end.
type TrackCompletedEvent struct {
	baseEvent
	Info SourceInfo
}

// Type returns the event type.
func (e TrackCompletedEvent) Type() EventType {
	return EventTrackCompleted
}

// NewTrackCompletedEvent creates a new TrackCompletedEvent.
func NewTrackCompletedEvent(info SourceInfo) TrackCompletedEvent {
	return TrackCompletedEvent{
		baseEvent: newBaseEvent(),
		Info:      info,
	}
}

// StatusChangedEvent is published whenever the playback status changes.
type StatusChangedEvent struct {
	baseEvent
	Previous PlaybackStatus
	Current  PlaybackStatus
	Info     SourceInfo // Zero when nothing is loaded
}

// Type returns the event type.
func (e StatusChangedEvent) Type() EventType {
	return EventStatusChanged
}

// NewStatusChangedEvent creates a new StatusChangedEvent.
func NewStatusChangedEvent(previous, current PlaybackStatus, info SourceInfo) StatusChangedEvent {
	return StatusChangedEvent{
		baseEvent: newBaseEvent(),
		Previous:  previous,
		Current:   current,
		Info:      info,
	}
}
