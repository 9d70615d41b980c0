package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Loggers. All of them default to nop-loggers until ApplyToGlobalLoggers is
// called.
var (
	// AppLogger is the main app.App logger.
	AppLogger = nopLogger()
	// ArenaLogger is used for the arena state machine and rosters.
	ArenaLogger = nopLogger()
	// VoteLogger is used for proposals and ballots.
	VoteLogger = nopLogger()
	// LevelLogger is used for the match orchestrator and command handling.
	LevelLogger = nopLogger()
	// PortalLogger is used for all MQTT stuff.
	PortalLogger = nopLogger()
	// StoreLogger is used for stuff regarding the database connection.
	StoreLogger = nopLogger()
	// WebServerLogger is used for all stuff regarding web servers.
	WebServerLogger = nopLogger()
	// WSLogger is used for all stuff regarding websocket connections.
	WSLogger = nopLogger()
)

func nopLogger() *zap.Logger {
	return zap.New(zapcore.NewNopCore())
}

// ApplyToGlobalLoggers derives all global loggers from the given one.
func ApplyToGlobalLoggers(logger *zap.Logger) {
	AppLogger = logger.Named("app")
	ArenaLogger = logger.Named("arena")
	VoteLogger = logger.Named("vote")
	LevelLogger = logger.Named("level")
	PortalLogger = logger.Named("portal")
	StoreLogger = logger.Named("store")
	WebServerLogger = logger.Named("web-server")
	WSLogger = logger.Named("ws")
}
