package vote

import (
	"fmt"
	"github.com/lefinal/arena-server/arena"
	"github.com/lefinal/arena-server/errors"
	"strconv"
	"strings"
)

func badArgument(format string, a ...any) error {
	return errors.NewBadRequestError(errors.KindInvalidArgument, fmt.Sprintf(format, a...), nil)
}

func parseBounded(args string, name string, min int, max int) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil || v < min || v > max {
		return 0, badArgument("%s must be between %d and %d", name, min, max)
	}
	return v, nil
}

// parseToggle parses "on" or "off". Without argument the current value is
// flipped.
func parseToggle(args string, current bool) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(args)) {
	case "":
		return !current, nil
	case "on", "1", "yes":
		return true, nil
	case "off", "0", "no":
		return false, nil
	}
	return false, badArgument("use on or off")
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

// findVictim resolves the name pattern against the connected players. The
// initiator cannot target himself and privileged players cannot be targeted.
func (b *Booth) findVictim(initiator *arena.Player, pattern string) (*arena.Player, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil, badArgument("name a player")
	}
	var found *arena.Player
	for _, p := range b.electorate() {
		if !p.Connected() || !arena.MatchGlob(pattern, p.Name) {
			continue
		}
		if found != nil {
			return nil, errors.NewBadRequestError(errors.KindAmbiguousMatch,
				fmt.Sprintf("%q matches more than one player", pattern), errors.Details{"pattern": pattern})
		}
		found = p
	}
	if found == nil {
		return nil, errors.Error{
			Code:    errors.ErrNotFound,
			Kind:    errors.KindPlayerNotFound,
			Message: fmt.Sprintf("no player matches %q", pattern),
			Details: errors.Details{"pattern": pattern},
		}
	}
	if found == initiator {
		return nil, badArgument("you cannot target yourself")
	}
	if found.Privileged {
		return nil, errors.NewForbiddenError(errors.KindIneligible,
			fmt.Sprintf("%s cannot be targeted", found.Name), nil)
	}
	return found, nil
}

// prepare validates the arguments for the kind and fills in payload, the new
// rules and the description. Proposals that would not change anything are
// rejected.
func (b *Booth) prepare(p *Proposal, args string) error {
	args = strings.TrimSpace(args)
	rules := &p.Rules
	switch p.Kind {
	case KindKick, KindMute:
		victim, err := b.findVictim(p.Initiator, args)
		if err != nil {
			return err
		}
		p.Victim = victim
		if p.Kind == KindKick {
			p.Description = fmt.Sprintf("kick %s", victim.Name)
			return nil
		}
		p.Value = 1
		if victim.Muted {
			p.Value = 0
			p.Description = fmt.Sprintf("unmute %s", victim.Name)
		} else {
			p.Description = fmt.Sprintf("mute %s", victim.Name)
		}
	case KindMap:
		name := strings.ToLower(args)
		if name == "" {
			return badArgument("name a map")
		}
		if b.catalog == nil || !b.catalog.HasMap(name) {
			return errors.NewBadRequestError(errors.KindResourceNotFound,
				fmt.Sprintf("map %s is not available", name), errors.Details{"map": name})
		}
		p.Text = name
		p.Description = fmt.Sprintf("map %s", name)
	case KindTeams:
		count, err := parseBounded(args, "team count", arena.MinTeams, arena.MaxTeams)
		if err != nil {
			return err
		}
		if count == len(b.arena.Teams()) {
			return badArgument("the arena already has %d teams", count)
		}
		p.Value = count
		p.Description = fmt.Sprintf("%d teams", count)
	case KindWeapons:
		if args == "" {
			return badArgument("usage: vote weapons -all +rg +cg:600 +hg:inf")
		}
		loadout, err := arena.ParseWeaponString(args, rules.Loadout)
		if err != nil {
			return err
		}
		diff := loadout.Diff(rules.Loadout)
		if diff == "no change" {
			return badArgument("the weapons would not change")
		}
		rules.Loadout = loadout
		p.Text = args
		p.Description = fmt.Sprintf("weapons %s", diff)
	case KindDamage:
		if args == "" {
			return badArgument("usage: vote damage -all +self +fall +team +armor")
		}
		damage, err := arena.ParseDamageString(args, rules.Damage)
		if err != nil {
			return err
		}
		if damage == rules.Damage {
			return badArgument("the damage rules would not change")
		}
		rules.Damage = damage
		p.Text = args
		p.Description = fmt.Sprintf("damage %s", damage)
	case KindRounds:
		v, err := parseBounded(args, "round limit", arena.MinRoundLimit, arena.MaxRoundLimit)
		if err != nil {
			return err
		}
		if v == rules.RoundLimit {
			return badArgument("the round limit already is %d", v)
		}
		rules.RoundLimit = v
		p.Value = v
		p.Description = fmt.Sprintf("%d rounds", v)
	case KindHealth:
		v, err := parseBounded(args, "health", arena.MinHealth, arena.MaxHealth)
		if err != nil {
			return err
		}
		if v == rules.Health {
			return badArgument("health already is %d", v)
		}
		rules.Health = v
		p.Value = v
		p.Description = fmt.Sprintf("health %d", v)
	case KindArmor:
		v, err := parseBounded(args, "armor", 0, arena.MaxArmor)
		if err != nil {
			return err
		}
		if v == rules.Armor {
			return badArgument("armor already is %d", v)
		}
		rules.Armor = v
		p.Value = v
		p.Description = fmt.Sprintf("armor %d", v)
	case KindReset:
		if *rules == b.defaults {
			return badArgument("the arena already uses the default rules")
		}
		*rules = b.defaults
		p.Description = "reset to default rules"
	case KindFastSwitch:
		v, err := parseToggle(args, rules.FastSwitch)
		if err != nil {
			return err
		}
		if v == rules.FastSwitch {
			return badArgument("fast switch already is %s", onOff(v))
		}
		rules.FastSwitch = v
		p.Description = fmt.Sprintf("fast switch %s", onOff(v))
	case KindTimelimit:
		v, err := parseBounded(args, "round time limit", 0, arena.MaxRoundTimelimit)
		if err != nil {
			return err
		}
		if v == rules.RoundTimelimit {
			return badArgument("the round time limit already is %d", v)
		}
		rules.RoundTimelimit = v
		p.Value = v
		p.Description = fmt.Sprintf("round time limit %d minutes", v)
	case KindMode:
		mode, err := arena.ParseMode(args)
		if err != nil {
			return err
		}
		if mode == rules.Mode {
			return badArgument("the mode already is %s", mode)
		}
		rules.Mode = mode
		p.Description = fmt.Sprintf("%s mode", mode)
	case KindCorpseView:
		v, err := parseToggle(args, rules.CorpseView)
		if err != nil {
			return err
		}
		if v == rules.CorpseView {
			return badArgument("corpse view already is %s", onOff(v))
		}
		rules.CorpseView = v
		p.Description = fmt.Sprintf("corpse view %s", onOff(v))
	case KindConfig:
		name := strings.ToLower(args)
		if name == "" {
			return badArgument("name a config")
		}
		var preset arena.Rules
		ok := false
		if b.catalog != nil {
			preset, ok = b.catalog.Preset(name)
		}
		if !ok {
			return errors.NewBadRequestError(errors.KindResourceNotFound,
				fmt.Sprintf("config %s is not listed", name), errors.Details{"config": name})
		}
		*rules = preset
		p.Text = name
		p.Description = fmt.Sprintf("config %s", name)
	default:
		return badArgument("unknown proposal")
	}
	return nil
}

// apply performs the effect of a passed proposal.
func (b *Booth) apply(p *Proposal) error {
	switch p.Kind {
	case KindKick:
		if b.effects == nil {
			return errors.NewInternalError("no effects for kick", nil)
		}
		b.effects.Kick(p.Victim, "kicked by vote")
	case KindMute:
		if b.effects == nil {
			return errors.NewInternalError("no effects for mute", nil)
		}
		b.effects.Mute(p.Victim, p.Value == 1)
	case KindMap:
		if b.effects == nil {
			return errors.NewInternalError("no effects for map change", nil)
		}
		b.effects.ChangeMap(p.Text)
	case KindTeams:
		return b.arena.SetTeamCount(p.Value)
	case KindWeapons, KindDamage, KindRounds, KindHealth, KindArmor, KindReset, KindFastSwitch,
		KindTimelimit, KindMode, KindCorpseView, KindConfig:
		b.arena.SetRules(p.Rules)
		if p.Kind == KindWeapons || p.Kind == KindReset || p.Kind == KindConfig {
			b.broadcast(fmt.Sprintf("Weapons: %s", p.Rules.Loadout.Diff(p.Previous.Loadout)))
		}
	default:
		return errors.NewInternalError("unknown proposal kind", errors.Details{"kind": p.Kind.String()})
	}
	return nil
}
