// Package logpublishsvc publishes log entries to the portal so that engine
// operators can follow warnings of the arena server.
package logpublishsvc

import (
	"context"
	"github.com/jonboulle/clockwork"
	"github.com/lefinal/arena-server/event"
	"github.com/lefinal/arena-server/logging"
	"github.com/lefinal/arena-server/portal"
	"github.com/lefinal/arena-server/service"
	"go.uber.org/zap"
	"time"
)

// collectDelay is the time to collect further entries after the first one
// before publishing them as one batch.
const collectDelay = 200 * time.Millisecond

// maxBatchSize is the maximum amount of entries in one batch.
const maxBatchSize = 64

type logPublishService struct {
	logger       *zap.Logger
	portal       portal.Portal
	clock        clockwork.Clock
	logEntriesIn <-chan logging.LogEntry
}

// New creates a service.Service that publishes entries from the given channel
// in batches to portal.TopicLog.
func New(logger *zap.Logger, portal portal.Portal, clock clockwork.Clock, logEntriesIn <-chan logging.LogEntry) service.Service {
	return &logPublishService{
		logger:       logger,
		portal:       portal,
		clock:        clock,
		logEntriesIn: logEntriesIn,
	}
}

// Run until the given context.Context is done or the entry channel is closed.
func (s *logPublishService) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case entry, more := <-s.logEntriesIn:
			if !more {
				return nil
			}
			batch, more := s.collect(ctx, entry)
			s.portal.Publish(ctx, portal.TopicLog, batch)
			if !more {
				return nil
			}
		}
	}
}

// collect reads entries until collectDelay passed or the batch is full. The
// second return value is false if the entry channel was closed.
func (s *logPublishService) collect(ctx context.Context, first logging.LogEntry) (event.LogEntriesEvent, bool) {
	batch := event.LogEntriesEvent{
		Entries: []event.NextLogEntryEvent{logEntryEvent(first)},
	}
	timer := s.clock.NewTimer(collectDelay)
	defer timer.Stop()
	for len(batch.Entries) < maxBatchSize {
		select {
		case <-ctx.Done():
			return batch, true
		case <-timer.Chan():
			return batch, true
		case entry, more := <-s.logEntriesIn:
			if !more {
				return batch, false
			}
			batch.Entries = append(batch.Entries, logEntryEvent(entry))
		}
	}
	return batch, true
}

func logEntryEvent(entry logging.LogEntry) event.NextLogEntryEvent {
	return event.NextLogEntryEvent{
		Time:       entry.Time,
		Message:    entry.Message,
		Level:      entry.Level.String(),
		LoggerName: entry.LoggerName,
		Fields:     entry.Fields,
	}
}
