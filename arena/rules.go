package arena

import (
	"fmt"
	"github.com/lefinal/arena-server/errors"
	"strconv"
	"strings"
)

// Weapon is an item of the loadout. Each weapon has its own ammo and
// infinite-ammo entry.
type Weapon int

// Weapons in loadout order.
const (
	Shotgun Weapon = iota
	SuperShotgun
	Machinegun
	Chaingun
	GrenadeLauncher
	RocketLauncher
	Hyperblaster
	Railgun
	BFG
	// HandGrenades only carry ammo and have no weapon flag.
	HandGrenades
	// WeaponCount is the number of weapons.
	WeaponCount
)

// MaxAmmo is the highest allowed ammo value.
const MaxAmmo = 999

var weaponTokens = [WeaponCount]string{
	Shotgun:         "sg",
	SuperShotgun:    "ssg",
	Machinegun:      "mg",
	Chaingun:        "cg",
	GrenadeLauncher: "gl",
	RocketLauncher:  "rl",
	Hyperblaster:    "hb",
	Railgun:         "rg",
	BFG:             "bfg",
	HandGrenades:    "hg",
}

var defaultAmmo = [WeaponCount]int{
	Shotgun:         50,
	SuperShotgun:    50,
	Machinegun:      200,
	Chaingun:        200,
	GrenadeLauncher: 50,
	RocketLauncher:  50,
	Hyperblaster:    200,
	Railgun:         50,
	BFG:             150,
	HandGrenades:    10,
}

// Token is the short name used in weapon strings.
func (w Weapon) Token() string {
	if w < 0 || w >= WeaponCount {
		return "?"
	}
	return weaponTokens[w]
}

// Flag is the flag of the weapon in a WeaponFlag set. HandGrenades have none.
func (w Weapon) Flag() WeaponFlag {
	if w < 0 || w >= HandGrenades {
		return 0
	}
	return 1 << uint(w)
}

func weaponByToken(token string) (Weapon, bool) {
	for w, t := range weaponTokens {
		if t == token {
			return Weapon(w), true
		}
	}
	return 0, false
}

// WeaponFlag is a set of enabled weapons.
type WeaponFlag uint32

// AllWeapons has every weapon flag set.
const AllWeapons WeaponFlag = 1<<uint(HandGrenades) - 1

// Loadout is the weapon set with per-weapon ammo and infinite-ammo tables.
type Loadout struct {
	Weapons  WeaponFlag
	Ammo     [WeaponCount]int
	Infinite [WeaponCount]bool
}

// DefaultLoadout enables all weapons with default ammo.
func DefaultLoadout() Loadout {
	return Loadout{
		Weapons: AllWeapons,
		Ammo:    defaultAmmo,
	}
}

// Has describes whether the weapon is enabled. HandGrenades are never
// enabled as they have no flag.
func (l Loadout) Has(w Weapon) bool {
	f := w.Flag()
	return f != 0 && l.Weapons&f != 0
}

func (l Loadout) ammoString(w Weapon) string {
	if l.Infinite[w] {
		return "inf"
	}
	return strconv.Itoa(l.Ammo[w])
}

// String renders the enabled weapons and their ammo as weapon string.
func (l Loadout) String() string {
	parts := []string{"-all"}
	for w := Weapon(0); w < WeaponCount; w++ {
		if l.Has(w) || (w.Flag() == 0 && (l.Ammo[w] > 0 || l.Infinite[w])) {
			parts = append(parts, fmt.Sprintf("+%s:%s", w.Token(), l.ammoString(w)))
		}
	}
	return strings.Join(parts, " ")
}

// Diff renders the literal change from prev to l.
func (l Loadout) Diff(prev Loadout) string {
	parts := make([]string, 0)
	for w := Weapon(0); w < WeaponCount; w++ {
		was, is := prev.Has(w), l.Has(w)
		ammoChanged := prev.Ammo[w] != l.Ammo[w] || prev.Infinite[w] != l.Infinite[w]
		switch {
		case was && !is:
			parts = append(parts, "-"+w.Token())
		case is && !was, ammoChanged:
			part := "+" + w.Token()
			if ammoChanged {
				part += ":" + l.ammoString(w)
			}
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return "no change"
	}
	return strings.Join(parts, " ")
}

// signedTokens splits a rule string into sign, name and optional argument.
func signedTokens(s string) ([][3]string, error) {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) == 0 {
		return nil, errors.NewBadRequestError(errors.KindInvalidArgument, "empty rule string", nil)
	}
	tokens := make([][3]string, 0, len(fields))
	for _, field := range fields {
		if len(field) < 2 || (field[0] != '+' && field[0] != '-') {
			return nil, errors.NewBadRequestError(errors.KindInvalidArgument,
				fmt.Sprintf("token %q must start with + or -", field), errors.Details{"token": field})
		}
		name, arg, _ := strings.Cut(field[1:], ":")
		tokens = append(tokens, [3]string{field[:1], name, arg})
	}
	return tokens, nil
}

// ParseWeaponString applies a weapon string like "-all +rg +cg:600 +hg:inf" to
// the given base loadout. Tokens are applied from left to right. An ammo
// argument is either a number up to MaxAmmo or "inf".
func ParseWeaponString(s string, base Loadout) (Loadout, error) {
	tokens, err := signedTokens(s)
	if err != nil {
		return Loadout{}, err
	}
	l := base
	for _, token := range tokens {
		sign, name, arg := token[0], token[1], token[2]
		if name == "all" {
			if arg != "" {
				return Loadout{}, errors.NewBadRequestError(errors.KindInvalidArgument,
					"all does not take an ammo argument", nil)
			}
			if sign == "+" {
				l.Weapons = AllWeapons
			} else {
				l.Weapons = 0
			}
			continue
		}
		w, ok := weaponByToken(name)
		if !ok {
			return Loadout{}, errors.NewBadRequestError(errors.KindInvalidArgument,
				fmt.Sprintf("unknown weapon %q", name), errors.Details{"token": name})
		}
		if sign == "-" {
			if arg != "" {
				return Loadout{}, errors.NewBadRequestError(errors.KindInvalidArgument,
					fmt.Sprintf("-%s does not take an ammo argument", name), nil)
			}
			l.Weapons &^= w.Flag()
			if w.Flag() == 0 {
				l.Ammo[w] = 0
				l.Infinite[w] = false
			}
			continue
		}
		l.Weapons |= w.Flag()
		switch arg {
		case "":
		case "inf":
			l.Infinite[w] = true
		default:
			ammo, err := strconv.Atoi(arg)
			if err != nil || ammo < 0 || ammo > MaxAmmo {
				return Loadout{}, errors.NewBadRequestError(errors.KindInvalidArgument,
					fmt.Sprintf("ammo for %s must be between 0 and %d or inf", name, MaxAmmo),
					errors.Details{"token": name, "ammo": arg})
			}
			l.Ammo[w] = ammo
			l.Infinite[w] = false
		}
	}
	return l, nil
}

// DamageFlag is a set of damage rules.
type DamageFlag uint32

const (
	// DamageSelf allows players to hurt themselves.
	DamageSelf DamageFlag = 1 << iota
	// DamageFalling enables falling damage.
	DamageFalling
	// DamageTeam allows hurting teammates.
	DamageTeam
	// DamageArmorTeam lets team damage hit armor only.
	DamageArmorTeam
)

// AllDamage has every damage flag set.
const AllDamage = DamageSelf | DamageFalling | DamageTeam | DamageArmorTeam

var damageTokens = []struct {
	token string
	flag  DamageFlag
}{
	{token: "self", flag: DamageSelf},
	{token: "fall", flag: DamageFalling},
	{token: "team", flag: DamageTeam},
	{token: "armor", flag: DamageArmorTeam},
}

// String renders the damage flags as damage string.
func (d DamageFlag) String() string {
	parts := []string{"-all"}
	for _, t := range damageTokens {
		if d&t.flag != 0 {
			parts = append(parts, "+"+t.token)
		}
	}
	return strings.Join(parts, " ")
}

// ParseDamageString applies a damage string like "-all +self +fall" to base.
func ParseDamageString(s string, base DamageFlag) (DamageFlag, error) {
	tokens, err := signedTokens(s)
	if err != nil {
		return 0, err
	}
	d := base
	for _, token := range tokens {
		sign, name, arg := token[0], token[1], token[2]
		if arg != "" {
			return 0, errors.NewBadRequestError(errors.KindInvalidArgument,
				fmt.Sprintf("%s does not take an argument", name), nil)
		}
		var flag DamageFlag
		if name == "all" {
			flag = AllDamage
		} else {
			for _, t := range damageTokens {
				if t.token == name {
					flag = t.flag
				}
			}
		}
		if flag == 0 {
			return 0, errors.NewBadRequestError(errors.KindInvalidArgument,
				fmt.Sprintf("unknown damage rule %q", name), errors.Details{"token": name})
		}
		if sign == "+" {
			d |= flag
		} else {
			d &^= flag
		}
	}
	return d, nil
}

// Mode is the match mode of an arena.
type Mode int

const (
	// ModeNormal keeps teams open during matches.
	ModeNormal Mode = iota
	// ModeCompetition locks all teams when a match starts.
	ModeCompetition
)

func (m Mode) String() string {
	if m == ModeCompetition {
		return "competition"
	}
	return "normal"
}

// ParseMode parses "normal" or "competition".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "normal":
		return ModeNormal, nil
	case "competition", "comp":
		return ModeCompetition, nil
	}
	return 0, errors.NewBadRequestError(errors.KindInvalidArgument,
		fmt.Sprintf("unknown mode %q, use normal or competition", s), nil)
}

// Limits for rule values.
const (
	MinHealth         = 1
	MaxHealth         = 999
	MaxArmor          = 999
	MinRoundLimit     = 1
	MaxRoundLimit     = 99
	MaxRoundTimelimit = 60
)

// Rules are the match settings of an arena that can be changed by votes.
type Rules struct {
	// Loadout players spawn with.
	Loadout Loadout
	// Damage rules.
	Damage DamageFlag
	// Health players spawn with.
	Health int
	// Armor players spawn with.
	Armor int
	// RoundLimit is the amount of rounds per match.
	RoundLimit int
	// RoundTimelimit is the round time limit in minutes. Zero disables it.
	RoundTimelimit int
	// Mode is the match mode.
	Mode Mode
	// CorpseView lets dead players watch from their corpse instead of chasing
	// teammates.
	CorpseView bool
	// FastSwitch enables instant weapon switching.
	FastSwitch bool
}

// DefaultRules are the rules arenas start with if not configured otherwise.
func DefaultRules() Rules {
	return Rules{
		Loadout:    DefaultLoadout(),
		Damage:     DamageFalling,
		Health:     100,
		Armor:      200,
		RoundLimit: 7,
	}
}
