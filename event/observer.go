package event

import (
	"github.com/gobuffalo/nulls"
	"time"
)

// Events for observers like the live feed.

// ArenaStateEvent is published when the state of an arena changes.
type ArenaStateEvent struct {
	// Arena is the arena number.
	Arena int `json:"arena"`
	// From is the previous state.
	From string `json:"from"`
	// To is the new state.
	To string `json:"to"`
	// Round is the current round.
	Round int `json:"round"`
}

// RoundEndedEvent is published when a round ended.
type RoundEndedEvent struct {
	Arena int `json:"arena"`
	Round int `json:"round"`
	// Winner is the name of the winning team. It is not set for draws.
	Winner nulls.String `json:"winner"`
	// Points holds the points by team name.
	Points map[string]int `json:"points"`
}

// MatchEndedEvent is published when a match ended.
type MatchEndedEvent struct {
	Arena int `json:"arena"`
	// Winner is the name of the winning team. It is not set for draws.
	Winner nulls.String `json:"winner"`
	// Points holds the points by team name.
	Points map[string]int `json:"points"`
}

// VoteResolvedEvent is published when a proposal left flight.
type VoteResolvedEvent struct {
	// Scope is either "global" or "arena".
	Scope string `json:"scope"`
	// Arena is set for arena proposals.
	Arena       nulls.Int `json:"arena"`
	Kind        string    `json:"kind"`
	Description string    `json:"description"`
	Initiator   string    `json:"initiator"`
	Outcome     string    `json:"outcome"`
}

// TeamSnapshot is the status of a team.
type TeamSnapshot struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
	Skin   string `json:"skin"`
	// Captain is the name of the captain if the team is not empty.
	Captain nulls.String `json:"captain"`
	// Players holds the member names in slot order.
	Players     []string `json:"players"`
	Alive       int      `json:"alive"`
	Ready       bool     `json:"ready"`
	Locked      bool     `json:"locked"`
	Points      int      `json:"points"`
	DamageDealt int      `json:"damage_dealt"`
	DamageTaken int      `json:"damage_taken"`
}

// ArenaSnapshot is the status of an arena.
type ArenaSnapshot struct {
	Number     int    `json:"number"`
	Name       string `json:"name"`
	State      string `json:"state"`
	Round      int    `json:"round"`
	RoundLimit int    `json:"round_limit"`
	// Clock is the display of the clock currently driving the arena if any.
	Clock      nulls.String   `json:"clock"`
	Teams      []TeamSnapshot `json:"teams"`
	Spectators []string       `json:"spectators"`
	Weapons    string         `json:"weapons"`
	Damage     string         `json:"damage"`
	Mode       string         `json:"mode"`
	// Vote is the description of the in-flight arena proposal.
	Vote nulls.String `json:"vote"`
}

// LevelSnapshot is the status of the whole level.
type LevelSnapshot struct {
	// Time is when the snapshot was taken.
	Time  time.Time `json:"time"`
	Map   string    `json:"map"`
	Frame uint64    `json:"frame"`
	// Players is the amount of connected players.
	Players int             `json:"players"`
	Arenas  []ArenaSnapshot `json:"arenas"`
	// Vote is the description of the in-flight global proposal.
	Vote nulls.String `json:"vote"`
}
