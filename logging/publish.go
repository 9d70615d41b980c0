package logging

import (
	"go.uber.org/zap/zapcore"
	"strings"
	"time"
)

// omitPublishLoggerPrefix is the prefix of loggers whose entries are never
// published. Publishing happens via the portal, so publishing its entries
// could loop.
const omitPublishLoggerPrefix = "portal"

// LogEntry is a log entry that is to be published.
type LogEntry struct {
	Time       time.Time
	Message    string
	Level      zapcore.Level
	LoggerName string
	Fields     map[string]interface{}
}

// publishCore is a zapcore.Core that forwards entries to a channel. Entries
// are dropped if the channel is full.
type publishCore struct {
	zapcore.LevelEnabler
	fields []zapcore.Field
	out    chan<- LogEntry
}

// NewPublishCore creates a zapcore.Core that forwards all enabled entries to
// the returned channel. Entries of the portal loggers are omitted.
func NewPublishCore(enabler zapcore.LevelEnabler, buffer int) (zapcore.Core, <-chan LogEntry) {
	out := make(chan LogEntry, buffer)
	return &publishCore{
		LevelEnabler: enabler,
		fields:       make([]zapcore.Field, 0),
		out:          out,
	}, out
}

func (c *publishCore) With(fields []zapcore.Field) zapcore.Core {
	combined := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	combined = append(combined, c.fields...)
	combined = append(combined, fields...)
	return &publishCore{
		LevelEnabler: c.LevelEnabler,
		fields:       combined,
		out:          c.out,
	}
}

func (c *publishCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(entry.Level) || strings.HasPrefix(entry.LoggerName, omitPublishLoggerPrefix) {
		return checked
	}
	return checked.AddCore(entry, c)
}

func (c *publishCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, field := range c.fields {
		field.AddTo(enc)
	}
	for _, field := range fields {
		field.AddTo(enc)
	}
	select {
	case c.out <- LogEntry{
		Time:       entry.Time,
		Message:    entry.Message,
		Level:      entry.Level,
		LoggerName: entry.LoggerName,
		Fields:     enc.Fields,
	}:
	default:
	}
	return nil
}

func (c *publishCore) Sync() error {
	return nil
}
