package vote

import (
	"fmt"
	"github.com/lefinal/arena-server/errors"
	"strings"
)

// Kind is the type of a Proposal.
type Kind int

const (
	// KindNone is used when no proposal is in flight.
	KindNone Kind = iota
	// KindKick kicks a player from the server.
	KindKick
	// KindMute toggles the mute flag of a player.
	KindMute
	// KindMap changes the map.
	KindMap
	// KindTeams changes the team count of an arena.
	KindTeams
	// KindWeapons changes the loadout of an arena.
	KindWeapons
	// KindDamage changes the damage rules of an arena.
	KindDamage
	// KindRounds changes the round limit of an arena.
	KindRounds
	// KindHealth changes the starting health of an arena.
	KindHealth
	// KindArmor changes the starting armor of an arena.
	KindArmor
	// KindReset restores the default rules of an arena.
	KindReset
	// KindFastSwitch toggles fast weapon switching.
	KindFastSwitch
	// KindTimelimit changes the round time limit of an arena.
	KindTimelimit
	// KindMode changes the match mode of an arena.
	KindMode
	// KindCorpseView toggles the corpse view.
	KindCorpseView
	// KindConfig applies a named rule preset.
	KindConfig
	kindCount
)

var kindNames = [kindCount]string{
	KindNone:       "none",
	KindKick:       "kick",
	KindMute:       "mute",
	KindMap:        "map",
	KindTeams:      "teams",
	KindWeapons:    "weapons",
	KindDamage:     "damage",
	KindRounds:     "rounds",
	KindHealth:     "health",
	KindArmor:      "armor",
	KindReset:      "reset",
	KindFastSwitch: "fastswitch",
	KindTimelimit:  "timelimit",
	KindMode:       "mode",
	KindCorpseView: "corpseview",
	KindConfig:     "config",
}

func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return "unknown"
	}
	return kindNames[k]
}

// Scope is the audience of a Proposal.
type Scope int

const (
	// ScopeGlobal proposals are voted on by everybody on the server.
	ScopeGlobal Scope = iota
	// ScopeArena proposals are voted on by the members of one arena.
	ScopeArena
)

func (s Scope) String() string {
	if s == ScopeGlobal {
		return "global"
	}
	return "arena"
}

// Scope returns the scope proposals of the kind are voted in.
func (k Kind) Scope() Scope {
	switch k {
	case KindKick, KindMute, KindMap:
		return ScopeGlobal
	}
	return ScopeArena
}

// Kinds returns all proposal kinds except KindNone.
func Kinds() []Kind {
	kinds := make([]Kind, 0, kindCount-1)
	for k := KindNone + 1; k < kindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// ParseKind parses the name of a proposal kind.
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(name)
	for k := KindNone + 1; k < kindCount; k++ {
		if kindNames[k] == name {
			return k, nil
		}
	}
	return KindNone, errors.NewBadRequestError(errors.KindInvalidArgument,
		fmt.Sprintf("unknown proposal %q, use one of: %s", name, KindList()), errors.Details{"proposal": name})
}

// KindList is a comma-separated list of all kind names for help messages.
func KindList() string {
	names := make([]string, 0, kindCount-1)
	for _, k := range Kinds() {
		names = append(names, k.String())
	}
	return strings.Join(names, ", ")
}

// Mask is a set of disabled proposal kinds.
type Mask uint32

// Has reports whether the kind is masked off.
func (m Mask) Has(k Kind) bool {
	return m&(1<<uint(k)) != 0
}

// With returns the mask with the given kinds added.
func (m Mask) With(kinds ...Kind) Mask {
	for _, k := range kinds {
		m |= 1 << uint(k)
	}
	return m
}

// ParseMask builds a Mask from kind names.
func ParseMask(names []string) (Mask, error) {
	var m Mask
	for _, name := range names {
		k, err := ParseKind(name)
		if err != nil {
			return 0, errors.Wrap(err, "parse kind", errors.Details{"name": name})
		}
		m = m.With(k)
	}
	return m, nil
}
