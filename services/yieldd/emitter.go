package yieldd

import (
	"context"
	"log/slog"
	"sort"

	"yieldplus/core/events"
	"yieldplus/observability/logging"
)

// LogEmitter writes every committed event as one structured log line.
type LogEmitter struct {
	Logger *slog.Logger
}

// Emit implements events.Emitter.
func (e LogEmitter) Emit(evt events.Event) {
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []slog.Attr{slog.String("type", evt.EventType())}
	if payload := eventAttributes(evt); len(payload) > 0 {
		keys := make([]string, 0, len(payload))
		for k := range payload {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			attrs = append(attrs, logging.MaskField(k, payload[k]))
		}
	}
	logger.LogAttrs(context.Background(), slog.LevelInfo, "event", attrs...)
}

func eventAttributes(evt events.Event) map[string]string {
	switch e := evt.(type) {
	case events.Generic:
		if e.Event != nil {
			return e.Event.Attributes
		}
	case events.Payload:
		if rendered := e.Event(); rendered != nil {
			return rendered.Attributes
		}
	}
	return nil
}
