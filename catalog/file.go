package catalog

import (
	"context"
	"github.com/gobuffalo/nulls"
	"github.com/lefinal/arena-server/errors"
	"gopkg.in/yaml.v3"
	"os"
	"sort"
)

// filePreset is a preset as written in the catalog file.
type filePreset struct {
	Weapons    *string `yaml:"weapons"`
	Damage     *string `yaml:"damage"`
	Health     *int    `yaml:"health"`
	Armor      *int    `yaml:"armor"`
	Rounds     *int    `yaml:"rounds"`
	Timelimit  *int    `yaml:"timelimit"`
	Mode       *string `yaml:"mode"`
	FastSwitch *bool   `yaml:"fastswitch"`
	CorpseView *bool   `yaml:"corpseview"`
}

func (fp filePreset) preset(name string) Preset {
	p := Preset{Name: name}
	if fp.Weapons != nil {
		p.Weapons = nulls.NewString(*fp.Weapons)
	}
	if fp.Damage != nil {
		p.Damage = nulls.NewString(*fp.Damage)
	}
	if fp.Health != nil {
		p.Health = nulls.NewInt(*fp.Health)
	}
	if fp.Armor != nil {
		p.Armor = nulls.NewInt(*fp.Armor)
	}
	if fp.Rounds != nil {
		p.Rounds = nulls.NewInt(*fp.Rounds)
	}
	if fp.Timelimit != nil {
		p.Timelimit = nulls.NewInt(*fp.Timelimit)
	}
	if fp.Mode != nil {
		p.Mode = nulls.NewString(*fp.Mode)
	}
	if fp.FastSwitch != nil {
		p.FastSwitch = nulls.NewBool(*fp.FastSwitch)
	}
	if fp.CorpseView != nil {
		p.CorpseView = nulls.NewBool(*fp.CorpseView)
	}
	return p
}

// File is the content of a catalog file.
type File struct {
	MapNames []string              `yaml:"maps"`
	Presets  map[string]filePreset `yaml:"presets"`
}

// ParseFile parses the YAML content of a catalog file.
func ParseFile(raw []byte) (File, error) {
	var f File
	err := yaml.Unmarshal(raw, &f)
	if err != nil {
		return File{}, errors.Error{
			Code:    errors.ErrBadRequest,
			Kind:    errors.KindInvalidConfig,
			Err:     err,
			Message: "parse catalog file",
		}
	}
	return f, nil
}

// ReadFile reads and parses the catalog file at the given path.
func ReadFile(filename string) (File, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return File{}, errors.Error{
			Code:    errors.ErrInternal,
			Err:     err,
			Message: "read catalog file",
			Details: errors.Details{"filename": filename},
		}
	}
	return ParseFile(raw)
}

// Maps returns the maps of the file. It implements Source.
func (f File) Maps(_ context.Context) ([]string, error) {
	return f.MapNames, nil
}

// RulePresets returns the presets of the file sorted by name. It implements
// Source.
func (f File) RulePresets(_ context.Context) ([]Preset, error) {
	names := make([]string, 0, len(f.Presets))
	for name := range f.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	presets := make([]Preset, 0, len(names))
	for _, name := range names {
		presets = append(presets, f.Presets[name].preset(name))
	}
	return presets, nil
}
