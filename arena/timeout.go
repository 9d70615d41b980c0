package arena

import (
	"fmt"
	"github.com/lefinal/arena-server/clock"
	"github.com/lefinal/arena-server/errors"
	"go.uber.org/zap"
)

// CallTimeout freezes the running round. Only team members and privileged
// players may call it.
func (a *Arena) CallTimeout(p *Player) error {
	if a.state != StatePlay {
		return errors.NewPhaseViolationError("timeouts can only be called during a round",
			errors.Details{"state": a.state.String()})
	}
	if !p.Privileged && (p.Team == nil || !a.hasTeam(p.Team)) {
		return errors.NewForbiddenError(errors.KindNotOnTeam, "only team members can call a timeout", nil)
	}
	a.preTimeoutState = a.state
	a.timeoutCaller = p
	a.timeoutStart = a.now
	a.timeout.Init(a.config.TimeoutSeconds, 0, clock.CountDown)
	a.timeout.Start(a.now)
	a.setState(StateTimeout)
	a.logger.Debug("timeout called", zap.String("caller", p.Name))
	a.host.PrintArena(a, fmt.Sprintf("%s called a timeout for %d seconds", p.Name, a.config.TimeoutSeconds))
	return nil
}

// CallTimein ends the timeout early. The remaining time is clamped to the
// time-in window so that players are warned before play resumes. Only the
// caller of the timeout and privileged players may call it.
func (a *Arena) CallTimein(p *Player) error {
	if a.state != StateTimeout {
		return errors.NewPhaseViolationError("there is no timeout to end", nil)
	}
	if p != a.timeoutCaller && !p.Privileged {
		return errors.NewForbiddenError(errors.KindIneligible, "only the caller can end the timeout", nil)
	}
	if a.timeout.Value() <= a.config.TimeinSeconds {
		return errors.NewBadRequestError(errors.KindInvalidArgument, "play is already resuming", nil)
	}
	a.timeout.SetValue(a.config.TimeinSeconds)
	a.host.PrintArena(a, fmt.Sprintf("%s called time-in, resuming in %d seconds", p.Name, a.config.TimeinSeconds))
	return nil
}

func (a *Arena) timeoutTicked(c *clock.Clock) {
	if c.Value() > 0 && c.Value() <= a.config.TimeinSeconds {
		a.host.PrintArena(a, fmt.Sprintf("Resuming in %d", c.Value()))
	}
}

func (a *Arena) timeoutDone(_ *clock.Clock, owner any) {
	if owner != a || a.state != StateTimeout {
		return
	}
	// The round time limit does not run during timeouts.
	a.playStart += a.now - a.timeoutStart
	a.timeoutCaller = nil
	a.setState(a.preTimeoutState)
	a.host.PrintArena(a, "Play resumed")
}
