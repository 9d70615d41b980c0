package arena

import (
	"fmt"
	"github.com/lefinal/arena-server/errors"
)

// MaxTeamPlayers is the roster capacity of a Team.
const MaxTeamPlayers = 10

// Team limits per arena.
const (
	MinTeams = 2
	MaxTeams = 5
)

var teamNames = [MaxTeams]string{"Red", "Blue", "Green", "Yellow", "Purple"}

var teamSkins = [MaxTeams]string{"male/ctf_r", "male/ctf_b", "male/ctf_g", "male/ctf_y", "male/ctf_p"}

// Team is a roster of up to MaxTeamPlayers players in an arena. Slot order is
// only meaningful for display and captain succession.
type Team struct {
	// Number is the slot of the team in the arena, starting at 1.
	Number int
	// Name is the display name.
	Name string
	// Skin is applied to every member.
	Skin string
	// roster holds the players by slot. Free slots are nil.
	roster [MaxTeamPlayers]*Player
	// count is the amount of occupied slots.
	count int
	// alive is the amount of members alive in the current round.
	alive   int
	captain *Player
	ready   bool
	locked  bool
	// lockedByMatch is set if the lock was placed by a competition match start.
	lockedByMatch bool
	// DamageDealt is the damage dealt by members in the current match.
	DamageDealt int
	// DamageTaken is the damage taken by members in the current match.
	DamageTaken int
	// Points are the rounds won in the current match.
	Points int
}

func newTeam(number int) *Team {
	return &Team{
		Number: number,
		Name:   teamNames[number-1],
		Skin:   teamSkins[number-1],
	}
}

// Count is the number of players on the team.
func (t *Team) Count() int {
	return t.count
}

// Alive is the number of players alive in the current round.
func (t *Team) Alive() int {
	return t.alive
}

// Captain of the team or nil if empty.
func (t *Team) Captain() *Player {
	return t.captain
}

// Ready describes whether every member is ready.
func (t *Team) Ready() bool {
	return t.ready
}

// Locked teams only accept forced joins.
func (t *Team) Locked() bool {
	return t.locked
}

// Players returns the members in slot order.
func (t *Team) Players() []*Player {
	players := make([]*Player, 0, t.count)
	for _, p := range t.roster {
		if p != nil {
			players = append(players, p)
		}
	}
	return players
}

// Has describes whether the given player is on the team.
func (t *Team) Has(p *Player) bool {
	return t.slotOf(p) != -1
}

func (t *Team) slotOf(p *Player) int {
	for i, member := range t.roster {
		if member != nil && member == p {
			return i
		}
	}
	return -1
}

// add inserts the player into the first free slot. The captain is assigned if
// none exists.
func (t *Team) add(p *Player) error {
	slot := -1
	for i, member := range t.roster {
		if member == nil {
			slot = i
			break
		}
	}
	if slot == -1 {
		return errors.NewForbiddenError(errors.KindTeamFull, fmt.Sprintf("team %s is full", t.Name),
			errors.Details{"team": t.Number})
	}
	t.roster[slot] = p
	t.count++
	if t.captain == nil {
		t.captain = p
	}
	p.Team = t
	t.updateReady()
	return nil
}

// remove clears the slot of the given player. If the player was captain, the
// first remaining member becomes captain.
func (t *Team) remove(p *Player) bool {
	slot := t.slotOf(p)
	if slot == -1 {
		return false
	}
	t.roster[slot] = nil
	t.count--
	if p.Alive && t.alive > 0 {
		t.alive--
	}
	if t.captain == p {
		t.captain = nil
		for _, member := range t.roster {
			if member != nil {
				t.captain = member
				break
			}
		}
	}
	p.Team = nil
	t.updateReady()
	return true
}

// ForceReady sets the individual ready flag of every member.
func (t *Team) ForceReady(ready bool) {
	for _, p := range t.roster {
		if p != nil {
			p.Ready = ready
		}
	}
	t.updateReady()
}

// updateReady recomputes the ready flag. Empty teams are never ready.
func (t *Team) updateReady() bool {
	ready := t.count > 0
	for _, p := range t.roster {
		if p != nil && !p.Ready {
			ready = false
			break
		}
	}
	t.ready = ready
	return ready
}

// resetAlive marks every member alive for a new round.
func (t *Team) resetAlive() {
	t.alive = 0
	for _, p := range t.roster {
		if p != nil {
			p.Alive = true
			t.alive++
		}
	}
}

// resetScores clears the match accumulators.
func (t *Team) resetScores() {
	t.Points = 0
	t.DamageDealt = 0
	t.DamageTaken = 0
	for _, p := range t.roster {
		if p != nil {
			p.DamageDealt = 0
			p.DamageTaken = 0
		}
	}
}
