package arena

import (
	"fmt"
	"github.com/lefinal/arena-server/clock"
	"github.com/lefinal/arena-server/errors"
	"go.uber.org/zap"
	"strings"
)

// Tick advances the arena to the given frame. Clocks are advanced before the
// state checks so that a clock reaching zero is visible in the same frame.
func (a *Arena) Tick(now clock.Frame) {
	a.now = now
	if a.state == StateTimeout {
		a.timeout.Tick(now)
		return
	}
	a.countdown.Tick(now)
	a.intermission.Tick(now)
	switch a.state {
	case StatePlay:
		a.checkRoundOver()
	case StateWarmup:
		a.evaluateReadiness("")
	}
}

// evaluateReadiness updates the ready flags of all teams and the arena. The
// arena is ready if at least MinTeams teams have players and every populated
// team is ready. A ready arena in warmup starts the match while an arena that
// is no longer ready aborts the countdown of the first round with the given
// reason. Between rounds readiness is not required.
func (a *Arena) evaluateReadiness(reason string) {
	populated := 0
	ready := true
	for _, t := range a.teams {
		t.updateReady()
		if t.count == 0 {
			continue
		}
		populated++
		if !t.ready {
			ready = false
		}
	}
	a.ready = ready && populated >= MinTeams
	switch {
	case a.state == StateWarmup && a.ready:
		a.startMatch()
	case a.state == StateCountdown && !a.ready && a.round == 1:
		a.abortCountdown(reason)
	}
}

func (a *Arena) startMatch() {
	a.round = 1
	for _, t := range a.teams {
		t.resetScores()
		if a.rules.Mode == ModeCompetition && !t.locked {
			t.locked = true
			t.lockedByMatch = true
		}
	}
	a.logger.Info("match starting", zap.Int("round_limit", a.rules.RoundLimit))
	a.host.PrintArena(a, fmt.Sprintf("All teams are ready. %d rounds to play.", a.rules.RoundLimit))
	a.startCountdown()
}

// startCountdown respawns all team members and arms the round start clock.
func (a *Arena) startCountdown() {
	a.result = nil
	a.modeErrLogged = false
	for _, t := range a.teams {
		t.resetAlive()
		for _, p := range t.Players() {
			a.host.Respawn(p, a.rules)
		}
	}
	a.countdown.Init(a.config.CountdownSeconds, 0, clock.CountDown)
	a.countdown.Start(a.now)
	a.setState(StateCountdown)
	a.host.PrintArena(a, fmt.Sprintf("Round %d of %d starts in %d seconds", a.round, a.rules.RoundLimit,
		a.config.CountdownSeconds))
}

func (a *Arena) abortCountdown(reason string) {
	a.resetMatch()
	if reason == "" {
		reason = "A team is no longer ready"
	}
	a.host.PrintArena(a, reason+", countdown aborted")
	a.host.PrintArena(a, a.StatusLine())
}

func (a *Arena) countdownTicked(c *clock.Clock) {
	if a.state != StateCountdown || c.Value() <= 0 {
		return
	}
	a.host.PrintArena(a, fmt.Sprintf("%d", c.Value()))
}

func (a *Arena) countdownDone(_ *clock.Clock, owner any) {
	if owner != a || a.state != StateCountdown {
		return
	}
	a.playStart = a.now
	a.setState(StatePlay)
	a.host.PrintArena(a, "FIGHT!")
}

// checkRoundOver evaluates the round winner predicate. The round end is
// scheduled once per round, after that the predicate is skipped.
func (a *Arena) checkRoundOver() {
	if a.result != nil {
		return
	}
	if a.playerCount() == 0 {
		a.logger.Info("all players left, aborting match")
		a.resetMatch()
		a.host.PrintArena(a, "All players left, match aborted")
		return
	}
	winner, decided, err := a.roundWinner()
	if err != nil {
		if !a.modeErrLogged {
			errors.Log(a.logger, err)
			a.modeErrLogged = true
		}
		return
	}
	if !decided {
		return
	}
	a.result = &RoundResult{
		Round:  a.round,
		Winner: winner,
	}
	a.intermission.Init(a.config.RoundEndDelay, 0, clock.CountDown)
	a.intermission.Start(a.now)
}

// roundWinner dispatches to the predicate of the configured game type. A nil
// winner with decided set is a draw.
func (a *Arena) roundWinner() (*Team, bool, error) {
	switch a.config.GameType {
	case GameTypeTeam:
		winner, decided := a.teamRoundWinner()
		return winner, decided, nil
	case GameTypeFFA, GameTypeRedRover:
		return nil, false, errors.NewNotImplementedError(fmt.Sprintf("%s round logic", a.config.GameType))
	}
	return nil, false, errors.Error{
		Code:    errors.ErrInternal,
		Kind:    errors.KindInvalidConfig,
		Message: "unknown game type",
		Details: errors.Details{"game_type": a.config.GameType},
	}
}

// teamRoundWinner decides the round once at most one team has players alive.
// When the round time limit expired, the team with most players alive wins.
func (a *Arena) teamRoundWinner() (*Team, bool) {
	standing := make([]*Team, 0, len(a.teams))
	for _, t := range a.teams {
		if t.alive > 0 {
			standing = append(standing, t)
		}
	}
	switch len(standing) {
	case 0:
		return nil, true
	case 1:
		return standing[0], true
	}
	if !a.roundTimeExpired() {
		return nil, false
	}
	var best *Team
	tie := false
	for _, t := range standing {
		switch {
		case best == nil || t.alive > best.alive:
			best = t
			tie = false
		case t.alive == best.alive:
			tie = true
		}
	}
	if tie {
		return nil, true
	}
	return best, true
}

func (a *Arena) roundTimeExpired() bool {
	if a.rules.RoundTimelimit <= 0 {
		return false
	}
	return a.now >= a.playStart+clock.Seconds(a.rules.RoundTimelimit*60)
}

func (a *Arena) playerCount() int {
	count := 0
	for _, t := range a.teams {
		count += t.count
	}
	return count
}

// intermissionDone ends the round that was decided before. Without a recorded
// result nothing happens.
func (a *Arena) intermissionDone(_ *clock.Clock, owner any) {
	if owner != a || a.result == nil || a.state != StatePlay {
		return
	}
	result := *a.result
	a.result = nil
	if result.Winner != nil {
		result.Winner.Points++
		a.host.PrintArena(a, fmt.Sprintf("%s wins round %d", result.Winner.Name, result.Round))
	} else {
		a.host.PrintArena(a, fmt.Sprintf("Round %d is a draw", result.Round))
	}
	a.host.PrintArena(a, a.tally())
	a.logger.Debug("round ended", zap.Int("round", result.Round), zap.Bool("draw", result.Winner == nil))
	a.listener.RoundEnded(a, result)
	if result.Round >= a.rules.RoundLimit {
		a.endMatch()
		return
	}
	a.round++
	a.startCountdown()
}

func (a *Arena) tally() string {
	scores := make([]string, 0, len(a.teams))
	for _, t := range a.teams {
		scores = append(scores, fmt.Sprintf("%s %d", t.Name, t.Points))
	}
	return strings.Join(scores, " - ")
}

// matchWinner is the team with most points or nil if tied.
func (a *Arena) matchWinner() *Team {
	var best *Team
	tie := false
	for _, t := range a.teams {
		switch {
		case best == nil || t.Points > best.Points:
			best = t
			tie = false
		case t.Points == best.Points:
			tie = true
		}
	}
	if tie {
		return nil
	}
	return best
}

// endMatch announces the winner and returns to warmup with readiness cleared.
func (a *Arena) endMatch() {
	winner := a.matchWinner()
	if winner != nil {
		a.host.PrintArena(a, fmt.Sprintf("%s wins the match %s", winner.Name, a.tally()))
	} else {
		a.host.PrintArena(a, fmt.Sprintf("The match is a draw %s", a.tally()))
	}
	a.logger.Info("match ended", zap.Int("rounds", a.round))
	a.listener.MatchEnded(a, winner)
	a.resetMatch()
	for _, t := range a.teams {
		t.ForceReady(false)
		t.resetAlive()
		for _, p := range t.Players() {
			a.host.Respawn(p, a.rules)
		}
	}
	a.ready = false
	a.host.PrintArena(a, a.StatusLine())
}
