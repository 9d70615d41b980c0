package app

import (
	"encoding/json"
	"fmt"
	"github.com/gobuffalo/nulls"
	"github.com/lefinal/arena-server/arena"
	"github.com/lefinal/arena-server/errors"
	"github.com/lefinal/arena-server/vote"
	"go.uber.org/zap/zapcore"
	"os"
)

// defaultMaxDBConnections is the maximum number of database connections that
// is used when no other one is provided in the Config.
const defaultMaxDBConnections = 16

// defaultInitialMap is used if no initial map is configured.
const defaultInitialMap = "q2dm1"

// Config is the configuration needed in order to boot an App.
type Config struct {
	// DBConn is the optional connection string for the PostgreSQL database. If
	// not set, match results are not recorded and presets are only read from the
	// catalog file.
	DBConn nulls.String `json:"db_conn"`
	// DBMaxConns is the maximum number of database connections.
	DBMaxConns nulls.Int `json:"db_max_conns"`
	// MQTTAddr is the address of the MQTT server the simulation engine is
	// connected to.
	MQTTAddr string `json:"mqtt_addr"`
	// MQTTClientID is the optional client id to use.
	MQTTClientID nulls.String `json:"mqtt_client_id"`
	// WebServerAddr is the address, the app will listen for HTTP and websocket
	// connections on.
	WebServerAddr string `json:"web_server_addr"`
	// CatalogFile is the optional YAML file with maps and rule presets.
	CatalogFile nulls.String `json:"catalog_file"`
	// InitialMap is the map the level is created for until the engine reports a
	// loaded one.
	InitialMap nulls.String `json:"initial_map"`
	// SnapshotIntervalMS is the interval for publishing level snapshots.
	SnapshotIntervalMS nulls.Int `json:"snapshot_interval_ms"`
	// RulesPreset is the optional name of the catalog preset arenas start with.
	RulesPreset nulls.String `json:"rules_preset"`
	// Arena holds the arena timings. Zero values are replaced with defaults.
	Arena arena.Config `json:"arena"`
	// Vote is the voting config.
	Vote VoteConfig `json:"vote"`
	// Log is the logging config.
	Log LogConfig `json:"log"`
}

// VoteConfig is vote.Config with disabled proposal kinds by name.
type VoteConfig struct {
	vote.Config
	// DisabledKinds holds the names of proposal kinds that cannot be proposed.
	DisabledKinds []string `json:"disabled_kinds"`
}

// LogConfig is the configuration for logging.
type LogConfig struct {
	// StdoutLogLevel is the minimum level for logging to stdout.
	StdoutLogLevel zapcore.Level `json:"stdout_log_level"`
	// HighPriorityOutput is the optional file for warnings and errors.
	HighPriorityOutput nulls.String `json:"high_priority_output"`
	// DebugOutput is the optional file for all log entries.
	DebugOutput nulls.String `json:"debug_output"`
	// MaxSize is the maximum size in megabytes of log files before being rotated.
	MaxSize int `json:"max_size"`
	// KeepDays is the amount of days to keep rotated log files.
	KeepDays int `json:"keep_days"`
	// SystemDebugStatsInterval is the interval in minutes for logging debug
	// stats. If not set, no stats are logged.
	SystemDebugStatsInterval nulls.Int `json:"system_debug_stats_interval"`
	// SystemDebugStatsStack includes the stack of all goroutines in debug stats.
	SystemDebugStatsStack bool `json:"system_debug_stats_stack"`
	// PublishLevel is the optional minimum level of log entries to publish via
	// MQTT.
	PublishLevel nulls.String `json:"publish_level"`
}

// publishLevel parses LogConfig.PublishLevel.
func (c LogConfig) publishLevel() (zapcore.Level, error) {
	var level zapcore.Level
	err := level.UnmarshalText([]byte(c.PublishLevel.String))
	if err != nil {
		return level, invalidConfig("invalid publish level", errors.Details{"was": c.PublishLevel.String})
	}
	return level, nil
}

// ReadConfig reads the JSON config from the given file.
func ReadConfig(filename string) (Config, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, errors.Error{
			Code:    errors.ErrFatal,
			Kind:    errors.KindInvalidConfig,
			Err:     err,
			Message: "read config file",
			Details: errors.Details{"filename": filename},
		}
	}
	return ParseConfig(raw)
}

// ParseConfig parses the given JSON config.
func ParseConfig(raw []byte) (Config, error) {
	var config Config
	err := json.Unmarshal(raw, &config)
	if err != nil {
		return Config{}, errors.Error{
			Code:    errors.ErrBadRequest,
			Kind:    errors.KindInvalidConfig,
			Err:     err,
			Message: "parse config",
		}
	}
	return config, nil
}

func invalidConfig(message string, details errors.Details) error {
	return errors.NewBadRequestError(errors.KindInvalidConfig, message, details)
}

// ValidateConfig assures that the given Config is valid.
func ValidateConfig(config Config) error {
	if config.MQTTAddr == "" {
		return invalidConfig("missing mqtt addr", nil)
	}
	if config.WebServerAddr == "" {
		return invalidConfig("missing web server addr", nil)
	}
	if config.DBMaxConns.Valid && config.DBMaxConns.Int < 1 {
		return invalidConfig("db max conns must be positive", errors.Details{"was": config.DBMaxConns.Int})
	}
	if config.SnapshotIntervalMS.Valid && config.SnapshotIntervalMS.Int < 1 {
		return invalidConfig("snapshot interval must be positive", errors.Details{"was": config.SnapshotIntervalMS.Int})
	}
	if config.RulesPreset.Valid && !config.CatalogFile.Valid && !config.DBConn.Valid {
		return invalidConfig("rules preset requires a catalog file or database", nil)
	}
	err := validateArenaConfig(config.Arena)
	if err != nil {
		return errors.Wrap(err, "validate arena config", nil)
	}
	err = validateVoteConfig(config.Vote)
	if err != nil {
		return errors.Wrap(err, "validate vote config", nil)
	}
	if config.Log.SystemDebugStatsInterval.Valid && config.Log.SystemDebugStatsInterval.Int < 1 {
		return invalidConfig("system debug stats interval must be positive",
			errors.Details{"was": config.Log.SystemDebugStatsInterval.Int})
	}
	if config.Log.PublishLevel.Valid {
		_, err = config.Log.publishLevel()
		if err != nil {
			return errors.Wrap(err, "validate log config", nil)
		}
	}
	return nil
}

func validateArenaConfig(config arena.Config) error {
	switch config.GameType {
	case "", arena.GameTypeTeam, arena.GameTypeFFA, arena.GameTypeRedRover:
	default:
		return invalidConfig(fmt.Sprintf("unknown game type %q", config.GameType), nil)
	}
	for field, value := range map[string]int{
		"countdown seconds": config.CountdownSeconds,
		"round end delay":   config.RoundEndDelay,
		"timeout seconds":   config.TimeoutSeconds,
		"timein seconds":    config.TimeinSeconds,
	} {
		if value < 0 {
			return invalidConfig(fmt.Sprintf("%s must not be negative", field), errors.Details{"was": value})
		}
	}
	if config.TimeoutSeconds > 0 && config.TimeinSeconds >= config.TimeoutSeconds {
		return invalidConfig("timein seconds must be less than timeout seconds", errors.Details{
			"timein_seconds":  config.TimeinSeconds,
			"timeout_seconds": config.TimeoutSeconds,
		})
	}
	return nil
}

func validateVoteConfig(config VoteConfig) error {
	if config.ThresholdPercent < 0 || config.ThresholdPercent >= 100 {
		return invalidConfig("threshold percent must be between 0 and 99", errors.Details{"was": config.ThresholdPercent})
	}
	if config.DurationSeconds < 0 || config.CooldownSeconds < 0 || config.MaxProposals < 0 {
		return invalidConfig("vote timings and quota must not be negative", nil)
	}
	_, err := vote.ParseMask(config.DisabledKinds)
	if err != nil {
		return errors.Wrap(err, "parse disabled kinds", nil)
	}
	return nil
}

// voteConfig returns the vote.Config with defaults for zero values and the
// parsed mask. The config must have been validated.
func (c VoteConfig) voteConfig() vote.Config {
	def := vote.DefaultConfig()
	config := c.Config
	if config.DurationSeconds == 0 {
		config.DurationSeconds = def.DurationSeconds
	}
	if config.ThresholdPercent == 0 {
		config.ThresholdPercent = def.ThresholdPercent
	}
	if config.CooldownSeconds == 0 {
		config.CooldownSeconds = def.CooldownSeconds
	}
	if config.MaxProposals == 0 {
		config.MaxProposals = def.MaxProposals
	}
	config.Mask, _ = vote.ParseMask(c.DisabledKinds)
	return config
}
