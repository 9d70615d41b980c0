package event

import (
	"github.com/gobuffalo/nulls"
	"github.com/google/uuid"
)

// Events received from the simulation engine.

// ArenaDeclaration is an arena entity found in the loaded map.
type ArenaDeclaration struct {
	// Number identifies the arena.
	Number int `json:"number"`
	// Name is the optional display name.
	Name nulls.String `json:"name"`
	// Teams is the optional team count.
	Teams nulls.Int `json:"teams"`
}

// LevelLoadedEvent is sent by the engine when a map was loaded. All players
// have to reconnect afterwards.
type LevelLoadedEvent struct {
	// Map is the name of the loaded map.
	Map string `json:"map"`
	// Arenas holds the declared arenas. If empty, a single arena is used.
	Arenas []ArenaDeclaration `json:"arenas"`
}

// PlayerConnectedEvent is sent when a client finished connecting.
type PlayerConnectedEvent struct {
	// PlayerID identifies the session.
	PlayerID uuid.UUID `json:"player_id"`
	// Name is the display name.
	Name string `json:"name"`
	// Privileged describes whether the player authenticated as admin.
	Privileged bool `json:"privileged"`
}

// PlayerDisconnectedEvent is sent when a client left.
type PlayerDisconnectedEvent struct {
	// PlayerID identifies the session.
	PlayerID uuid.UUID `json:"player_id"`
}

// PlayerConnStateEvent is sent when the connectivity state of a client
// changes.
type PlayerConnStateEvent struct {
	// PlayerID identifies the session.
	PlayerID uuid.UUID `json:"player_id"`
	// State is one of "pregame", "spectator" or "in-play".
	State string `json:"state"`
}

// PlayerCommandEvent is a console command line issued by a client.
type PlayerCommandEvent struct {
	// PlayerID identifies the session.
	PlayerID uuid.UUID `json:"player_id"`
	// Line is the raw command line.
	Line string `json:"line"`
}

// PlayerKilledEvent is sent when a player died.
type PlayerKilledEvent struct {
	// PlayerID identifies the victim.
	PlayerID uuid.UUID `json:"player_id"`
	// AttackerID optionally identifies the killer.
	AttackerID nulls.String `json:"attacker_id"`
}

// DamageEvent is sent when a player was hurt by another one.
type DamageEvent struct {
	// AttackerID identifies the attacker.
	AttackerID uuid.UUID `json:"attacker_id"`
	// TargetID identifies the target.
	TargetID uuid.UUID `json:"target_id"`
	// Amount is the applied damage.
	Amount int `json:"amount"`
}

// Events sent to the simulation engine.

// PrintTarget is the audience of a PrintEvent.
type PrintTarget string

const (
	// PrintTargetPlayer prints to a single player.
	PrintTargetPlayer PrintTarget = "player"
	// PrintTargetArena prints to everybody in an arena.
	PrintTargetArena PrintTarget = "arena"
	// PrintTargetAll prints to everybody.
	PrintTargetAll PrintTarget = "all"
)

// PrintEvent requests a text line to be printed.
type PrintEvent struct {
	// Target is the audience.
	Target PrintTarget `json:"target"`
	// PlayerID is set for PrintTargetPlayer.
	PlayerID nulls.String `json:"player_id"`
	// Arena is set for PrintTargetArena.
	Arena nulls.Int `json:"arena"`
	// Message is the line to print.
	Message string `json:"message"`
}

// RespawnEvent requests a player to be put into play with the given inventory.
type RespawnEvent struct {
	PlayerID uuid.UUID `json:"player_id"`
	// Weapons holds the tokens of all enabled weapons.
	Weapons []string `json:"weapons"`
	// Ammo holds the ammo by weapon token.
	Ammo map[string]int `json:"ammo"`
	// Infinite holds the weapon tokens with infinite ammo.
	Infinite   []string `json:"infinite"`
	Health     int      `json:"health"`
	Armor      int      `json:"armor"`
	Damage     string   `json:"damage"`
	FastSwitch bool     `json:"fast_switch"`
	CorpseView bool     `json:"corpse_view"`
}

// SpectateEvent requests a player to be moved out of play.
type SpectateEvent struct {
	PlayerID uuid.UUID `json:"player_id"`
}

// SkinEvent requests the skin of a player to be changed.
type SkinEvent struct {
	PlayerID uuid.UUID `json:"player_id"`
	Skin     string    `json:"skin"`
}

// StatusEvent requests the status bar of a player to be rebuilt.
type StatusEvent struct {
	PlayerID uuid.UUID `json:"player_id"`
	// Status is the rules summary to show.
	Status string `json:"status"`
}

// KickEvent requests a player to be kicked.
type KickEvent struct {
	PlayerID uuid.UUID `json:"player_id"`
	Reason   string    `json:"reason"`
}

// MuteEvent requests the chat of a player to be muted or unmuted.
type MuteEvent struct {
	PlayerID uuid.UUID `json:"player_id"`
	Muted    bool      `json:"muted"`
}

// ChangeMapEvent requests a map change.
type ChangeMapEvent struct {
	Map string `json:"map"`
}
