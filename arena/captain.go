package arena

import (
	"fmt"
	"github.com/lefinal/arena-server/errors"
	"strings"
)

// MaxSkinLength is the maximum length of a team skin.
const MaxSkinLength = 32

func (a *Arena) captainTeam(p *Player) (*Team, error) {
	if p.Team == nil || !a.hasTeam(p.Team) {
		return nil, errors.NewBadRequestError(errors.KindNotOnTeam, "you are not on a team", nil)
	}
	if !p.IsCaptain() {
		return nil, errors.NewForbiddenError(errors.KindNotCaptain,
			fmt.Sprintf("only the captain of team %s can do that", p.Team.Name), nil)
	}
	return p.Team, nil
}

// ToggleLock locks or unlocks the team of the captain. Locked teams only accept
// picks. It returns the new lock state.
func (a *Arena) ToggleLock(p *Player) (bool, error) {
	t, err := a.captainTeam(p)
	if err != nil {
		return false, err
	}
	t.locked = !t.locked
	t.lockedByMatch = false
	if t.locked {
		a.host.PrintArena(a, fmt.Sprintf("%s locked team %s", p.Name, t.Name))
	} else {
		a.host.PrintArena(a, fmt.Sprintf("%s unlocked team %s", p.Name, t.Name))
	}
	return t.locked, nil
}

// CaptainForceReady readies every member of the captain's team.
func (a *Arena) CaptainForceReady(p *Player) error {
	t, err := a.captainTeam(p)
	if err != nil {
		return err
	}
	if a.MidMatch() {
		return errors.NewPhaseViolationError("the match is already running", nil)
	}
	t.ForceReady(true)
	a.host.PrintArena(a, fmt.Sprintf("%s forced team %s ready", p.Name, t.Name))
	a.evaluateReadiness("")
	return nil
}

// matchOne resolves the pattern against the names of the candidates. Exactly
// one candidate must match.
func matchOne(pattern string, candidates []*Player) (*Player, error) {
	var found *Player
	for _, candidate := range candidates {
		if !MatchGlob(pattern, candidate.Name) {
			continue
		}
		if found != nil {
			return nil, errors.NewBadRequestError(errors.KindAmbiguousMatch,
				fmt.Sprintf("%q matches more than one player", pattern), errors.Details{"pattern": pattern})
		}
		found = candidate
	}
	if found == nil {
		return nil, errors.Error{
			Code:    errors.ErrNotFound,
			Kind:    errors.KindPlayerNotFound,
			Message: fmt.Sprintf("no player matches %q", pattern),
			Details: errors.Details{"pattern": pattern},
		}
	}
	return found, nil
}

// Pick moves the spectator matching the name pattern onto the captain's team.
// Picks bypass the team lock and are allowed during a running match.
func (a *Arena) Pick(p *Player, pattern string) (*Player, error) {
	t, err := a.captainTeam(p)
	if err != nil {
		return nil, err
	}
	target, err := matchOne(pattern, a.Spectators())
	if err != nil {
		return nil, err
	}
	err = a.Join(target, t, true)
	if err != nil {
		return nil, err
	}
	a.host.PrintTo(target, fmt.Sprintf("You were picked by %s", p.Name))
	return target, nil
}

// Remove moves the teammate matching the name pattern to the spectators. The
// captain cannot remove themselves.
func (a *Arena) Remove(p *Player, pattern string) (*Player, error) {
	t, err := a.captainTeam(p)
	if err != nil {
		return nil, err
	}
	candidates := make([]*Player, 0, t.count)
	for _, member := range t.Players() {
		if member != p {
			candidates = append(candidates, member)
		}
	}
	target, err := matchOne(pattern, candidates)
	if err != nil {
		return nil, err
	}
	err = a.Part(target, false)
	if err != nil {
		return nil, err
	}
	a.host.PrintTo(target, fmt.Sprintf("You were removed from team %s by %s", t.Name, p.Name))
	return target, nil
}

// SetTeamSkin changes the skin of the captain's team and applies it to every
// member.
func (a *Arena) SetTeamSkin(p *Player, skin string) error {
	t, err := a.captainTeam(p)
	if err != nil {
		return err
	}
	skin = strings.TrimSpace(skin)
	if skin == "" || len(skin) > MaxSkinLength || strings.ContainsAny(skin, " \t\\\"") {
		return errors.NewBadRequestError(errors.KindInvalidArgument, "invalid skin name", errors.Details{"skin": skin})
	}
	t.Skin = skin
	for _, member := range t.Players() {
		member.Skin = skin
		a.host.ApplySkin(member, skin)
	}
	a.host.PrintArena(a, fmt.Sprintf("Team %s now wears %s", t.Name, skin))
	return nil
}
