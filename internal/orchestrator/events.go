package orchestrator

import "github.com/rs/zerolog"

// Event represents an orchestrator lifecycle event.
// Minimal and stable: name + deployment id and optional fields via key/values.
type Event struct {
	Name         string
	DeploymentID string
	Fields       map[string]any
}

// EventPublisher receives events from the orchestrator. Implementations
// should be lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// ZerologPublisher logs events as structured records.
type ZerologPublisher struct {
	Log zerolog.Logger
}

// Publish writes the event at info level.
func (p ZerologPublisher) Publish(e Event) {
	ev := p.Log.Info().Str("event", e.Name).Str("deployment_id", e.DeploymentID)
	for k, v := range e.Fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg("deployment event")
}
