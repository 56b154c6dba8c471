package mq

import (
	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/moamenhredeen/oascov/internal/tester"
)

// EventPublisher is the subset of Publisher used by EventHandler
type EventPublisher interface {
	Publish(routingKey string, payload map[string]any) error
}

// EventHandler adapts engine events to published messages. Publish failures are logged and never stop the run.
func EventHandler(p EventPublisher, log logger.ILogger) tester.OnTestEvent {
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	return func(event tester.TestEvent) {
		key, payload := message(event)
		if key == "" {
			return
		}
		if err := p.Publish(key, payload); err != nil {
			log.Warningf("failed to publish %s for run %s: %v", key, event.RunID, err)
		}
	}
}

// Chain calls every handler in order
func Chain(handlers ...tester.OnTestEvent) tester.OnTestEvent {
	return func(event tester.TestEvent) {
		for _, h := range handlers {
			if h != nil {
				h(event)
			}
		}
	}
}

func message(event tester.TestEvent) (string, map[string]any) {
	switch event.Type {
	case tester.EventRunStarted:
		return KeyRunStarted, map[string]any{
			"run_id": event.RunID,
			"total":  event.Total,
		}
	case tester.EventCompleted:
		if event.Result == nil {
			return "", nil
		}
		return KeyTestCompleted, map[string]any{
			"run_id": event.RunID,
			"index":  event.Index,
			"total":  event.Total,
			"result": event.Result,
		}
	case tester.EventRunCompleted:
		if event.Summary == nil {
			return "", nil
		}
		return KeyRunCompleted, map[string]any{
			"run_id":  event.RunID,
			"summary": event.Summary,
		}
	default:
		return "", nil
	}
}
