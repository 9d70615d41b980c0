package arena

import (
	"github.com/google/uuid"
	"github.com/lefinal/arena-server/clock"
)

// ConnState is the connectivity state of a Player as reported by the host.
type ConnState int

const (
	// ConnDisconnected is used for players that left the server.
	ConnDisconnected ConnState = iota
	// ConnPregame is used while the client is still loading.
	ConnPregame
	// ConnSpectator is used for connected players that are not in play.
	ConnSpectator
	// ConnInPlay is used for connected players that are in play.
	ConnInPlay
)

func (s ConnState) String() string {
	switch s {
	case ConnDisconnected:
		return "disconnected"
	case ConnPregame:
		return "pregame"
	case ConnSpectator:
		return "spectator"
	case ConnInPlay:
		return "in-play"
	}
	return "unknown"
}

// Ballot is a vote cast by a player. It only counts for the proposal whose
// round-index equals Index.
type Ballot struct {
	// Index is the round-index of the proposal the ballot was cast for.
	Index int
	// Accept describes whether the player voted yes.
	Accept bool
}

// Player is a connected client that may take part in arena matches.
type Player struct {
	// ID identifies the player session.
	ID uuid.UUID
	// Name is the display name.
	Name string
	// Privileged players may override votes and timeouts.
	Privileged bool
	// Conn is the connectivity state.
	Conn ConnState
	// Arena is the arena the player is currently in. It is set via Arena.Enter.
	Arena *Arena
	// Team is the team the player belongs to or nil for spectators.
	Team *Team
	// Ready is the individual ready flag.
	Ready bool
	// Alive describes whether the player is alive in the current round.
	Alive bool
	// Skin is the currently applied skin.
	Skin string
	// Muted players cannot chat.
	Muted bool
	// GlobalBallot is the ballot for server-wide proposals.
	GlobalBallot Ballot
	// ArenaBallot is the ballot for proposals of the player's arena.
	ArenaBallot Ballot
	// LastProposal is the frame of the last accepted proposal by the player.
	LastProposal clock.Frame
	// Proposals is the amount of proposals issued in this session.
	Proposals int
	// DamageDealt is the damage the player dealt in the current match.
	DamageDealt int
	// DamageTaken is the damage the player took in the current match.
	DamageTaken int
}

// NewPlayer creates a connected Player that is in no arena.
func NewPlayer(id uuid.UUID, name string, privileged bool) *Player {
	return &Player{
		ID:         id,
		Name:       name,
		Privileged: privileged,
		Conn:       ConnPregame,
	}
}

// Connected describes whether the player is still connected.
func (p *Player) Connected() bool {
	return p.Conn != ConnDisconnected
}

// IsCaptain describes whether the player is the captain of their team.
func (p *Player) IsCaptain() bool {
	return p.Team != nil && p.Team.captain == p
}
