package level

import (
	"fmt"
	"github.com/google/uuid"
	"github.com/lefinal/arena-server/arena"
	"github.com/lefinal/arena-server/errors"
	"github.com/lefinal/arena-server/vote"
	"strconv"
	"strings"
)

// commandHandler handles a command with the given argument string.
type commandHandler func(l *Level, p *arena.Player, args string) error

var commands map[string]commandHandler

func init() {
	commands = map[string]commandHandler{
		"ready":      (*Level).cmdReady,
		"notready":   (*Level).cmdNotReady,
		"team":       (*Level).cmdTeam,
		"part":       (*Level).cmdPart,
		"arena":      (*Level).cmdArena,
		"lockteam":   (*Level).cmdLockTeam,
		"forceready": (*Level).cmdForceReady,
		"pick":       (*Level).cmdPick,
		"remove":     (*Level).cmdRemove,
		"teamskin":   (*Level).cmdTeamSkin,
		"timeout":    (*Level).cmdTimeout,
		"timein":     (*Level).cmdTimein,
		"vote":       (*Level).cmdVote,
		"yes":        (*Level).cmdYes,
		"no":         (*Level).cmdNo,
		"players":    (*Level).cmdPlayers,
		"status":     (*Level).cmdStatus,
	}
}

// Command handles a command line of the given player. Errors are reported to
// the player as a single line and returned.
func (l *Level) Command(id uuid.UUID, line string) error {
	p, err := l.Player(id)
	if err != nil {
		return err
	}
	name, args, _ := strings.Cut(strings.TrimSpace(line), " ")
	name = strings.ToLower(name)
	handler, ok := commands[name]
	if !ok {
		err = errors.NewBadRequestError(errors.KindUnknownCommand, fmt.Sprintf("unknown command %q", name),
			errors.Details{"command": name})
	} else {
		err = handler(l, p, strings.TrimSpace(args))
	}
	if err != nil {
		l.host.PrintTo(p, errors.UserMessage(err))
		return errors.Wrap(err, "handle command", errors.Details{"command": name, "player": p.Name})
	}
	return nil
}

func (l *Level) playerArena(p *arena.Player) (*arena.Arena, error) {
	if p.Arena == nil {
		return nil, errors.NewBadRequestError(errors.KindArenaNotFound, "you are not in an arena", nil)
	}
	return p.Arena, nil
}

func (l *Level) cmdReady(p *arena.Player, args string) error {
	a, err := l.playerArena(p)
	if err != nil {
		return err
	}
	ready := !p.Ready
	switch strings.ToLower(args) {
	case "":
	case "on", "1":
		ready = true
	case "off", "0":
		ready = false
	default:
		return errors.NewBadRequestError(errors.KindInvalidArgument, "usage: ready [on|off]", nil)
	}
	return a.SetReady(p, ready)
}

func (l *Level) cmdNotReady(p *arena.Player, _ string) error {
	a, err := l.playerArena(p)
	if err != nil {
		return err
	}
	return a.SetReady(p, false)
}

func (l *Level) cmdTeam(p *arena.Player, args string) error {
	a, err := l.playerArena(p)
	if err != nil {
		return err
	}
	if args == "" {
		if p.Team == nil {
			l.host.PrintTo(p, fmt.Sprintf("You are spectating. Use team <1..%d> to join.", len(a.Teams())))
		} else {
			l.host.PrintTo(p, fmt.Sprintf("You are on team %s", p.Team.Name))
		}
		return nil
	}
	number, err := strconv.Atoi(args)
	if err != nil {
		return errors.NewBadRequestError(errors.KindInvalidArgument,
			fmt.Sprintf("usage: team <1..%d>", len(a.Teams())), nil)
	}
	t, err := a.Team(number)
	if err != nil {
		return err
	}
	return a.Join(p, t, false)
}

func (l *Level) cmdPart(p *arena.Player, _ string) error {
	a, err := l.playerArena(p)
	if err != nil {
		return err
	}
	return a.Part(p, false)
}

func (l *Level) cmdArena(p *arena.Player, args string) error {
	number, err := strconv.Atoi(args)
	if err != nil {
		return errors.NewBadRequestError(errors.KindInvalidArgument,
			fmt.Sprintf("usage: arena <1..%d>", arena.MaxArenas), nil)
	}
	a, err := l.Arena(number)
	if err != nil {
		return err
	}
	if p.Arena == a {
		return errors.NewBadRequestError(errors.KindInvalidArgument, fmt.Sprintf("you already are in %s", a.Name), nil)
	}
	a.Enter(p)
	l.host.PrintTo(p, a.StatusLine())
	return nil
}

func (l *Level) cmdLockTeam(p *arena.Player, _ string) error {
	a, err := l.playerArena(p)
	if err != nil {
		return err
	}
	_, err = a.ToggleLock(p)
	return err
}

func (l *Level) cmdForceReady(p *arena.Player, _ string) error {
	a, err := l.playerArena(p)
	if err != nil {
		return err
	}
	return a.CaptainForceReady(p)
}

func (l *Level) cmdPick(p *arena.Player, args string) error {
	a, err := l.playerArena(p)
	if err != nil {
		return err
	}
	if args == "" {
		return errors.NewBadRequestError(errors.KindInvalidArgument, "usage: pick <name>", nil)
	}
	_, err = a.Pick(p, args)
	return err
}

func (l *Level) cmdRemove(p *arena.Player, args string) error {
	a, err := l.playerArena(p)
	if err != nil {
		return err
	}
	if args == "" {
		return errors.NewBadRequestError(errors.KindInvalidArgument, "usage: remove <name>", nil)
	}
	_, err = a.Remove(p, args)
	return err
}

func (l *Level) cmdTeamSkin(p *arena.Player, args string) error {
	a, err := l.playerArena(p)
	if err != nil {
		return err
	}
	return a.SetTeamSkin(p, args)
}

func (l *Level) cmdTimeout(p *arena.Player, _ string) error {
	a, err := l.playerArena(p)
	if err != nil {
		return err
	}
	return a.CallTimeout(p)
}

func (l *Level) cmdTimein(p *arena.Player, _ string) error {
	a, err := l.playerArena(p)
	if err != nil {
		return err
	}
	return a.CallTimein(p)
}

// boothFor returns the booth responsible for proposals of the given scope for
// the player.
func (l *Level) boothFor(p *arena.Player, scope vote.Scope) (*vote.Booth, error) {
	if scope == vote.ScopeGlobal {
		return l.global, nil
	}
	a, err := l.playerArena(p)
	if err != nil {
		return nil, err
	}
	return l.booths[a], nil
}

func (l *Level) cmdVote(p *arena.Player, args string) error {
	name, rest, _ := strings.Cut(args, " ")
	if name == "" {
		l.printVotes(p)
		return nil
	}
	kind, err := vote.ParseKind(name)
	if err != nil {
		return err
	}
	booth, err := l.boothFor(p, kind.Scope())
	if err != nil {
		return err
	}
	_, err = booth.Propose(p, kind, strings.TrimSpace(rest), l.frame)
	return err
}

// printVotes tells the player about in-flight proposals or how to propose.
func (l *Level) printVotes(p *arena.Player) {
	printed := false
	for _, booth := range []*vote.Booth{l.global, l.booths[p.Arena]} {
		if booth == nil || !booth.InFlight() {
			continue
		}
		t := booth.Tally()
		l.host.PrintTo(p, fmt.Sprintf("Vote %s: yes %d, no %d of %d", booth.Current().Description,
			t.Accept, t.Reject, t.Total))
		printed = true
	}
	if !printed {
		l.host.PrintTo(p, fmt.Sprintf("usage: vote <proposal> [args], proposals: %s", vote.KindList()))
	}
}

// cast records the ballot with the arena proposal of the player taking
// precedence over the global one.
func (l *Level) cast(p *arena.Player, accept bool) error {
	if p.Arena != nil {
		if booth := l.booths[p.Arena]; booth.InFlight() {
			return booth.Cast(p, accept, l.frame)
		}
	}
	return l.global.Cast(p, accept, l.frame)
}

func (l *Level) cmdYes(p *arena.Player, _ string) error {
	return l.cast(p, true)
}

func (l *Level) cmdNo(p *arena.Player, _ string) error {
	return l.cast(p, false)
}

func (l *Level) cmdPlayers(p *arena.Player, _ string) error {
	a, err := l.playerArena(p)
	if err != nil {
		return err
	}
	for _, t := range a.Teams() {
		names := make([]string, 0, t.Count())
		for _, member := range t.Players() {
			name := member.Name
			if member.IsCaptain() {
				name += "*"
			}
			if member.Ready {
				name += " (ready)"
			}
			names = append(names, name)
		}
		l.host.PrintTo(p, fmt.Sprintf("%s: %s", t.Name, strings.Join(names, ", ")))
	}
	spectators := make([]string, 0)
	for _, s := range a.Spectators() {
		spectators = append(spectators, s.Name)
	}
	l.host.PrintTo(p, fmt.Sprintf("Spectators: %s", strings.Join(spectators, ", ")))
	return nil
}

func (l *Level) cmdStatus(p *arena.Player, _ string) error {
	a, err := l.playerArena(p)
	if err != nil {
		return err
	}
	l.host.PrintTo(p, a.StatusLine())
	r := a.Rules()
	l.host.PrintTo(p, fmt.Sprintf("Weapons: %s", r.Loadout))
	l.host.PrintTo(p, fmt.Sprintf("Damage: %s, health %d, armor %d, %s mode", r.Damage, r.Health, r.Armor, r.Mode))
	return nil
}
