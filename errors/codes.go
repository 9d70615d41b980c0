package errors

// Code is the general category of an Error.
type Code string

const (
	ErrAborted       Code = "aborted"
	ErrBadRequest    Code = "bad-request"
	ErrCommunication Code = "communication"
	ErrFatal         Code = "fatal"
	// ErrForbidden is used for policy rejections like locked teams, disabled
	// voting or rate limits.
	ErrForbidden  Code = "forbidden"
	ErrNotFound   Code = "not-found"
	ErrInternal   Code = "internal"
	ErrUnexpected Code = "unexpected"
)

// Kind further specifies an Error.
type Kind string

const (
	// KindAmbiguousMatch is used when a name pattern matches more than one
	// player.
	KindAmbiguousMatch Kind = "ambiguous-match"
	// KindArenaNotFound is used when an arena number is unknown.
	KindArenaNotFound Kind = "arena-not-found"
	// KindContextAborted is used when we were currently performing an operation but
	// the context got aborted.
	KindContextAborted Kind = "context-aborted"
	KindDB             Kind = "db"
	KindDBBegin        Kind = "db-begin"
	KindDBCommit       Kind = "db-commit"
	KindDBQuery        Kind = "db-query"
	KindDBRollback     Kind = "db-rollback"
	KindDBScan         Kind = "db-scan"
	KindDecodeJSON     Kind = "decode-json"
	KindEncodeJSON     Kind = "encode-json"
	// KindIneligible is used when a player is not allowed to perform an action
	// in the current role, for example voting as a pure spectator.
	KindIneligible Kind = "ineligible"
	// KindInvalidArgument is used for bad command arguments.
	KindInvalidArgument Kind = "invalid-argument"
	// KindInvalidConfig is used when the app config is not usable.
	KindInvalidConfig Kind = "invalid-config"
	// KindMatchPhaseViolation is used for operations that were performed although
	// not in the expected arena state.
	KindMatchPhaseViolation Kind = "match-phase-violation"
	// KindNotCaptain is used when captain-only commands are issued by someone
	// else.
	KindNotCaptain Kind = "not-captain"
	// KindNotImplemented is used for game types whose frame logic does not exist.
	KindNotImplemented Kind = "not-implemented"
	// KindNotOnTeam is used when a player needs to be on a team for an action.
	KindNotOnTeam Kind = "not-on-team"
	// KindPlayerNotFound is used when a player could not be resolved.
	KindPlayerNotFound Kind = "player-not-found"
	// KindRateLimited is used when a player issues proposals too frequently or
	// exhausted the proposal quota.
	KindRateLimited      Kind = "rate-limited"
	KindResourceNotFound Kind = "resource-not-found"
	// KindShouldNotHappen is used for states that are ruled out by invariants.
	KindShouldNotHappen Kind = "should-not-happen"
	// KindTeamFull is used when a team has no free roster slot.
	KindTeamFull Kind = "team-full"
	// KindTeamLocked is used when joining a locked team.
	KindTeamLocked Kind = "team-locked"
	// KindUnknownCommand is used for unknown player commands.
	KindUnknownCommand Kind = "unknown-command"
	KindUnexpected     Kind = "unexpected"
	// KindVoteDisabled is used when voting or the requested proposal kind is
	// disabled by the server.
	KindVoteDisabled Kind = "vote-disabled"
	// KindVoteInProgress is used when a proposal for the same scope is already in
	// flight.
	KindVoteInProgress Kind = "vote-in-progress"
	// KindNoVote is used when a ballot is cast without a proposal in flight.
	KindNoVote Kind = "no-vote"
)
