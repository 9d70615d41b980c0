package store

import (
	"context"
	"github.com/doug-martin/goqu/v9"
	"github.com/lefinal/arena-server/catalog"
	"github.com/lefinal/arena-server/errors"
)

// Maps retrieves the names of all maps that can be voted for.
func (m *Mall) Maps(ctx context.Context) ([]string, error) {
	q, _, err := m.dialect.From(goqu.T("maps")).
		Select(goqu.C("name")).
		Order(goqu.C("name").Asc()).ToSQL()
	if err != nil {
		return nil, errors.NewQueryToSQLError(err, nil)
	}
	rows, err := m.db.Query(ctx, q)
	if err != nil {
		return nil, errors.NewExecQueryError(err, "query maps", q)
	}
	defer rows.Close()
	maps := make([]string, 0)
	for rows.Next() {
		var name string
		err = rows.Scan(&name)
		if err != nil {
			return nil, errors.NewScanDBRowError(err, "scan map", q)
		}
		maps = append(maps, name)
	}
	if rows.Err() != nil {
		return nil, errors.NewExecQueryError(rows.Err(), "read maps", q)
	}
	return maps, nil
}

// RulePresets retrieves all rule presets.
func (m *Mall) RulePresets(ctx context.Context) ([]catalog.Preset, error) {
	q, _, err := m.dialect.From(goqu.T("rule_presets")).
		Select(goqu.C("name"),
			goqu.C("weapons"),
			goqu.C("damage"),
			goqu.C("health"),
			goqu.C("armor"),
			goqu.C("rounds"),
			goqu.C("timelimit"),
			goqu.C("mode"),
			goqu.C("fast_switch"),
			goqu.C("corpse_view")).
		Order(goqu.C("name").Asc()).ToSQL()
	if err != nil {
		return nil, errors.NewQueryToSQLError(err, nil)
	}
	rows, err := m.db.Query(ctx, q)
	if err != nil {
		return nil, errors.NewExecQueryError(err, "query rule presets", q)
	}
	defer rows.Close()
	presets := make([]catalog.Preset, 0)
	for rows.Next() {
		var p catalog.Preset
		err = rows.Scan(&p.Name,
			&p.Weapons,
			&p.Damage,
			&p.Health,
			&p.Armor,
			&p.Rounds,
			&p.Timelimit,
			&p.Mode,
			&p.FastSwitch,
			&p.CorpseView)
		if err != nil {
			return nil, errors.NewScanDBRowError(err, "scan rule preset", q)
		}
		presets = append(presets, p)
	}
	if rows.Err() != nil {
		return nil, errors.NewExecQueryError(rows.Err(), "read rule presets", q)
	}
	return presets, nil
}
