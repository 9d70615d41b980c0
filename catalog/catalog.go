// Package catalog holds the maps that can be voted for and the named rule
// presets for config proposals.
package catalog

import (
	"context"
	"fmt"
	"github.com/gobuffalo/nulls"
	"github.com/lefinal/arena-server/arena"
	"github.com/lefinal/arena-server/errors"
	"go.uber.org/zap"
	"sort"
	"strings"
	"sync"
)

// Preset is a named set of rule overrides. Unset fields keep the base rules.
type Preset struct {
	Name string
	// Weapons is a weapon string applied to the base loadout.
	Weapons nulls.String
	// Damage is a damage string applied to the base damage flags.
	Damage     nulls.String
	Health     nulls.Int
	Armor      nulls.Int
	Rounds     nulls.Int
	Timelimit  nulls.Int
	Mode       nulls.String
	FastSwitch nulls.Bool
	CorpseView nulls.Bool
}

// ToRules applies the preset to the given base rules.
func (p Preset) ToRules(base arena.Rules) (arena.Rules, error) {
	r := base
	var err error
	if p.Weapons.Valid {
		r.Loadout, err = arena.ParseWeaponString(p.Weapons.String, base.Loadout)
		if err != nil {
			return arena.Rules{}, errors.Wrap(err, "parse weapons", nil)
		}
	}
	if p.Damage.Valid {
		r.Damage, err = arena.ParseDamageString(p.Damage.String, base.Damage)
		if err != nil {
			return arena.Rules{}, errors.Wrap(err, "parse damage", nil)
		}
	}
	if p.Health.Valid {
		if p.Health.Int < arena.MinHealth || p.Health.Int > arena.MaxHealth {
			return arena.Rules{}, invalidValue("health", p.Health.Int)
		}
		r.Health = p.Health.Int
	}
	if p.Armor.Valid {
		if p.Armor.Int < 0 || p.Armor.Int > arena.MaxArmor {
			return arena.Rules{}, invalidValue("armor", p.Armor.Int)
		}
		r.Armor = p.Armor.Int
	}
	if p.Rounds.Valid {
		if p.Rounds.Int < arena.MinRoundLimit || p.Rounds.Int > arena.MaxRoundLimit {
			return arena.Rules{}, invalidValue("rounds", p.Rounds.Int)
		}
		r.RoundLimit = p.Rounds.Int
	}
	if p.Timelimit.Valid {
		if p.Timelimit.Int < 0 || p.Timelimit.Int > arena.MaxRoundTimelimit {
			return arena.Rules{}, invalidValue("timelimit", p.Timelimit.Int)
		}
		r.RoundTimelimit = p.Timelimit.Int
	}
	if p.Mode.Valid {
		r.Mode, err = arena.ParseMode(p.Mode.String)
		if err != nil {
			return arena.Rules{}, errors.Wrap(err, "parse mode", nil)
		}
	}
	if p.FastSwitch.Valid {
		r.FastSwitch = p.FastSwitch.Bool
	}
	if p.CorpseView.Valid {
		r.CorpseView = p.CorpseView.Bool
	}
	return r, nil
}

func invalidValue(field string, value int) error {
	return errors.NewBadRequestError(errors.KindInvalidConfig, fmt.Sprintf("%s %d out of range", field, value),
		errors.Details{"field": field, "value": value})
}

// Source provides maps and presets, for example from the database.
type Source interface {
	Maps(ctx context.Context) ([]string, error)
	RulePresets(ctx context.Context) ([]Preset, error)
}

// Catalog implements vote.Catalog. It is safe for concurrent use.
type Catalog struct {
	logger *zap.Logger
	// base are the rules presets are applied to.
	base    arena.Rules
	maps    map[string]struct{}
	presets map[string]arena.Rules
	m       sync.RWMutex
}

// New creates an empty Catalog with presets based on the given rules.
func New(logger *zap.Logger, base arena.Rules) *Catalog {
	return &Catalog{
		logger:  logger,
		base:    base,
		maps:    make(map[string]struct{}),
		presets: make(map[string]arena.Rules),
	}
}

// AddMaps adds the given map names.
func (c *Catalog) AddMaps(names ...string) {
	c.m.Lock()
	defer c.m.Unlock()
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		c.maps[name] = struct{}{}
	}
}

// AddPreset validates and adds the preset. Presets with the same name are
// replaced.
func (c *Catalog) AddPreset(p Preset) error {
	name := strings.ToLower(strings.TrimSpace(p.Name))
	if name == "" {
		return errors.NewBadRequestError(errors.KindInvalidConfig, "preset without name", nil)
	}
	rules, err := p.ToRules(c.base)
	if err != nil {
		return errors.Wrap(err, "preset rules", errors.Details{"preset": name})
	}
	c.m.Lock()
	c.presets[name] = rules
	c.m.Unlock()
	return nil
}

// Load adds all maps and presets from the given Source.
func (c *Catalog) Load(ctx context.Context, src Source) error {
	maps, err := src.Maps(ctx)
	if err != nil {
		return errors.Wrap(err, "maps", nil)
	}
	c.AddMaps(maps...)
	presets, err := src.RulePresets(ctx)
	if err != nil {
		return errors.Wrap(err, "rule presets", nil)
	}
	for _, p := range presets {
		err = c.AddPreset(p)
		if err != nil {
			return errors.Wrap(err, "add preset", nil)
		}
	}
	c.logger.Debug("loaded catalog source", zap.Int("maps", len(maps)), zap.Int("presets", len(presets)))
	return nil
}

// HasMap checks whether the map is known.
func (c *Catalog) HasMap(name string) bool {
	c.m.RLock()
	defer c.m.RUnlock()
	_, ok := c.maps[strings.ToLower(name)]
	return ok
}

// Preset returns the rules of the preset with the given name.
func (c *Catalog) Preset(name string) (arena.Rules, bool) {
	c.m.RLock()
	defer c.m.RUnlock()
	r, ok := c.presets[strings.ToLower(name)]
	return r, ok
}

// Maps returns all map names sorted.
func (c *Catalog) Maps() []string {
	c.m.RLock()
	defer c.m.RUnlock()
	names := make([]string, 0, len(c.maps))
	for name := range c.maps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PresetNames returns all preset names sorted.
func (c *Catalog) PresetNames() []string {
	c.m.RLock()
	defer c.m.RUnlock()
	names := make([]string, 0, len(c.presets))
	for name := range c.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
