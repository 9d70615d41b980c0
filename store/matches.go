package store

import (
	"context"
	"encoding/json"
	"github.com/doug-martin/goqu/v9"
	"github.com/gobuffalo/nulls"
	"github.com/google/uuid"
	"github.com/lefinal/arena-server/errors"
	"time"
)

// MatchResult is the result of a finished match.
type MatchResult struct {
	ID    uuid.UUID `json:"id"`
	Map   string    `json:"map"`
	Arena int       `json:"arena"`
	// Winner is the winning team name. It is not set for draws.
	Winner nulls.String `json:"winner"`
	// Points holds the points by team name.
	Points map[string]int `json:"points"`
	Ended  time.Time      `json:"ended"`
}

// RecordMatchResult stores the given result. If no id is set, a new one is
// assigned.
func (m *Mall) RecordMatchResult(ctx context.Context, result MatchResult) (MatchResult, error) {
	if result.ID == uuid.Nil {
		result.ID = uuid.New()
	}
	pointsRaw, err := json.Marshal(result.Points)
	if err != nil {
		return MatchResult{}, errors.Error{
			Code:    errors.ErrInternal,
			Kind:    errors.KindEncodeJSON,
			Err:     err,
			Message: "marshal points",
		}
	}
	q, _, err := m.dialect.Insert(goqu.T("match_results")).Rows(goqu.Record{
		"id":     result.ID.String(),
		"map":    result.Map,
		"arena":  result.Arena,
		"winner": result.Winner,
		"points": string(pointsRaw),
		"ended":  result.Ended,
	}).ToSQL()
	if err != nil {
		return MatchResult{}, errors.NewQueryToSQLError(err, nil)
	}
	_, err = m.db.Exec(ctx, q)
	if err != nil {
		return MatchResult{}, errors.NewExecQueryError(err, "insert match result", q)
	}
	return result, nil
}

// MatchResults retrieves the latest match results, newest first.
func (m *Mall) MatchResults(ctx context.Context, limit int) ([]MatchResult, error) {
	q, _, err := m.dialect.From(goqu.T("match_results")).
		Select(goqu.C("id"),
			goqu.C("map"),
			goqu.C("arena"),
			goqu.C("winner"),
			goqu.C("points"),
			goqu.C("ended")).
		Order(goqu.C("ended").Desc()).
		Limit(uint(limit)).ToSQL()
	if err != nil {
		return nil, errors.NewQueryToSQLError(err, nil)
	}
	rows, err := m.db.Query(ctx, q)
	if err != nil {
		return nil, errors.NewExecQueryError(err, "query match results", q)
	}
	defer rows.Close()
	results := make([]MatchResult, 0)
	for rows.Next() {
		var result MatchResult
		var pointsRaw []byte
		err = rows.Scan(&result.ID,
			&result.Map,
			&result.Arena,
			&result.Winner,
			&pointsRaw,
			&result.Ended)
		if err != nil {
			return nil, errors.NewScanDBRowError(err, "scan match result", q)
		}
		err = json.Unmarshal(pointsRaw, &result.Points)
		if err != nil {
			return nil, errors.Error{
				Code:    errors.ErrInternal,
				Kind:    errors.KindDecodeJSON,
				Err:     err,
				Message: "unmarshal points",
				Details: errors.Details{"match": result.ID.String()},
			}
		}
		results = append(results, result)
	}
	if rows.Err() != nil {
		return nil, errors.NewExecQueryError(rows.Err(), "read match results", q)
	}
	return results, nil
}
