package service

import (
	"log/slog"

	"freight-backoffice/internal/event"
)

// publish is fire-and-forget; a nil bus disables events.
func publish(bus event.Bus, eventType event.Type, actorID string, payload any) {
	if bus == nil {
		return
	}
	e, err := event.New(eventType, actorID, payload)
	if err != nil {
		slog.Error("build event", "type", eventType, "error", err)
		return
	}
	bus.Publish(e)
}
