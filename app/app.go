package app

import (
	"context"
	"github.com/lefinal/arena-server/arena"
	"github.com/lefinal/arena-server/catalog"
	"github.com/lefinal/arena-server/errors"
	"github.com/lefinal/arena-server/logging"
	"github.com/lefinal/arena-server/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"os"
)

// App is a complete arena server instance.
type App struct {
	// config is the main config used for the App.
	config Config
	// mall provides persistence. It is nil if no database is configured.
	mall *store.Mall
	// catalog holds maps and rule presets.
	catalog *catalog.Catalog
}

func NewApp(config Config) *App {
	return &App{
		config: config,
	}
}

// Boot sets everything up based on the set config and runs until the given
// context.Context is done.
func (app *App) Boot(ctx context.Context) error {
	// Validate config.
	err := ValidateConfig(app.config)
	if err != nil {
		return errors.Error{
			Code:    errors.ErrFatal,
			Kind:    errors.KindInvalidConfig,
			Err:     err,
			Message: "invalid config",
		}
	}
	// Setup logger.
	logger, logEntries := setupLogging(app.config.Log)
	logging.ApplyToGlobalLoggers(logger)
	defer func() {
		_ = logger.Sync()
	}()
	// Boot.
	err = app.boot(ctx, logEntries)
	if err != nil {
		err = errors.Wrap(err, "boot", nil)
		errors.Log(logging.AppLogger, err)
		return err
	}
	return nil
}

func (app *App) boot(ctx context.Context, logEntries <-chan logging.LogEntry) error {
	logging.AppLogger.Warn("booting up")
	// Connect database.
	if app.config.DBConn.Valid {
		logging.AppLogger.Debug("connecting to database")
		maxConns := defaultMaxDBConnections
		if app.config.DBMaxConns.Valid {
			maxConns = app.config.DBMaxConns.Int
		}
		db, err := store.Connect(ctx, logging.StoreLogger, app.config.DBConn.String, maxConns)
		if err != nil {
			return errors.Wrap(err, "connect database", nil)
		}
		defer db.Close()
		app.mall = store.NewMall(logging.StoreLogger, db)
		logging.AppLogger.Debug("database ready")
	}
	// Load catalog.
	err := app.loadCatalog(ctx)
	if err != nil {
		return errors.Wrap(err, "load catalog", nil)
	}
	rules := arena.DefaultRules()
	if app.config.RulesPreset.Valid {
		var ok bool
		rules, ok = app.catalog.Preset(app.config.RulesPreset.String)
		if !ok {
			return errors.Error{
				Code:    errors.ErrFatal,
				Kind:    errors.KindInvalidConfig,
				Message: "unknown rules preset",
				Details: errors.Details{"preset": app.config.RulesPreset.String},
			}
		}
	}
	// Create services.
	logging.AppLogger.Debug("setting up services")
	services, err := createServices(ctx, app.config, rules, app.catalog, app.mall, logEntries)
	if err != nil {
		return errors.Wrap(err, "create services", nil)
	}
	logging.AppLogger.Warn("completed setup. running...")
	err = services.run(ctx, logging.AppLogger)
	logging.AppLogger.Warn("shutting down")
	if err != nil {
		return errors.Wrap(err, "run services", nil)
	}
	return nil
}

// loadCatalog loads maps and presets from the catalog file and the database.
// Presets from the database replace the ones from the file with the same name.
func (app *App) loadCatalog(ctx context.Context) error {
	app.catalog = catalog.New(logging.AppLogger.Named("catalog"), arena.DefaultRules())
	if app.config.CatalogFile.Valid {
		f, err := catalog.ReadFile(app.config.CatalogFile.String)
		if err != nil {
			return errors.Wrap(err, "read catalog file", nil)
		}
		err = app.catalog.Load(ctx, f)
		if err != nil {
			return errors.Wrap(err, "load catalog file", nil)
		}
	}
	if app.mall != nil {
		err := app.catalog.Load(ctx, app.mall)
		if err != nil {
			return errors.Wrap(err, "load catalog from database", nil)
		}
	}
	logging.AppLogger.Info("catalog loaded",
		zap.Int("maps", len(app.catalog.Maps())),
		zap.Int("presets", len(app.catalog.PresetNames())))
	return nil
}

// logPublishBuffer is the amount of log entries that may queue up for
// publishing.
const logPublishBuffer = 256

// setupLogging creates the logger. If log publishing is enabled, the returned
// channel receives the entries to publish. Otherwise, it is nil.
func setupLogging(config LogConfig) (*zap.Logger, <-chan logging.LogEntry) {
	encConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	cores := make([]zapcore.Core, 0)
	// Setup stdout logger with colorful level output.
	stdOutEncConfig := encConfig
	stdOutEncConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cores = append(cores, zapcore.NewCore(
		zapcore.NewConsoleEncoder(stdOutEncConfig),
		zapcore.Lock(os.Stdout),
		zap.LevelEnablerFunc(func(level zapcore.Level) bool {
			return level >= config.StdoutLogLevel
		})))
	// Setup error logger.
	cores = append(cores, zapcore.NewCore(
		zapcore.NewConsoleEncoder(encConfig),
		zapcore.Lock(os.Stderr),
		zap.LevelEnablerFunc(func(level zapcore.Level) bool {
			return level >= zap.ErrorLevel
		})))
	// Setup high priority logger.
	if config.HighPriorityOutput.Valid {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encConfig),
			zapcore.AddSync(&lumberjack.Logger{
				Filename: config.HighPriorityOutput.String,
				MaxSize:  config.MaxSize,
				MaxAge:   config.KeepDays,
			}),
			zap.LevelEnablerFunc(func(level zapcore.Level) bool {
				return level >= zap.WarnLevel
			})))
	}
	// Setup debug logger.
	if config.DebugOutput.Valid {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encConfig),
			zapcore.AddSync(&lumberjack.Logger{
				Filename: config.DebugOutput.String,
				MaxSize:  config.MaxSize,
				MaxAge:   config.KeepDays,
			}),
			zap.LevelEnablerFunc(func(level zapcore.Level) bool {
				return level >= zap.DebugLevel
			})))
	}
	// Setup publish logger.
	var logEntries <-chan logging.LogEntry
	if config.PublishLevel.Valid {
		publishLevel, _ := config.publishLevel()
		var publishCore zapcore.Core
		publishCore, logEntries = logging.NewPublishCore(publishLevel, logPublishBuffer)
		cores = append(cores, publishCore)
	}
	// Combine.
	return zap.New(zapcore.NewTee(cores...)), logEntries
}
