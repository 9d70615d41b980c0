package vote

import (
	"fmt"
	"github.com/lefinal/arena-server/arena"
	"github.com/lefinal/arena-server/clock"
	"github.com/lefinal/arena-server/errors"
	"go.uber.org/zap"
)

// Config for voting.
type Config struct {
	// Disabled turns off voting completely.
	Disabled bool `json:"disabled"`
	// DurationSeconds is the time until a proposal times out.
	DurationSeconds int `json:"duration_seconds"`
	// ThresholdPercent must be exceeded by accepts to pass or by rejects to fail a
	// proposal.
	ThresholdPercent int `json:"threshold_percent"`
	// CooldownSeconds is the minimum time between two proposals of the same
	// player.
	CooldownSeconds int `json:"cooldown_seconds"`
	// MaxProposals is the proposal quota per player session.
	MaxProposals int `json:"max_proposals"`
	// Mask holds the disabled proposal kinds.
	Mask Mask `json:"-"`
}

// DefaultConfig returns the default voting config.
func DefaultConfig() Config {
	return Config{
		DurationSeconds:  30,
		ThresholdPercent: 50,
		CooldownSeconds:  10,
		MaxProposals:     5,
	}
}

// Effects are the level-wide effects of global proposals.
type Effects interface {
	// Kick removes the player from the server.
	Kick(p *arena.Player, reason string)
	// Mute sets the mute flag of the player.
	Mute(p *arena.Player, muted bool)
	// ChangeMap starts the level with the given map.
	ChangeMap(name string)
}

// Catalog provides the maps and named rule presets proposals may refer to.
type Catalog interface {
	HasMap(name string) bool
	Preset(name string) (arena.Rules, bool)
}

// Outcome of resolving a proposal.
type Outcome int

const (
	// OutcomePending is used while the proposal is still open.
	OutcomePending Outcome = iota
	// OutcomePassed is used when the proposal was accepted and applied.
	OutcomePassed
	// OutcomeRejected is used when the proposal was voted down.
	OutcomeRejected
	// OutcomeAborted is used when the proposal was dropped without a decision.
	OutcomeAborted
	// OutcomeTimedOut is used when the deadline was reached without a decision.
	OutcomeTimedOut
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomePassed:
		return "passed"
	case OutcomeRejected:
		return "rejected"
	case OutcomeAborted:
		return "aborted"
	case OutcomeTimedOut:
		return "timed-out"
	}
	return "unknown"
}

type override int

const (
	overrideNone override = iota
	overrideAccept
	overrideReject
)

// Proposal is an in-flight vote.
type Proposal struct {
	// Kind of the proposal.
	Kind Kind
	// Scope of the proposal.
	Scope Scope
	// Arena is the arena for arena proposals.
	Arena *arena.Arena
	// Index is the round-index ballots must carry to be counted.
	Index int
	// Expires is the frame at which the proposal times out.
	Expires clock.Frame
	// Value is the integer payload.
	Value int
	// Text is the string payload like a map or preset name.
	Text string
	// Rules are the rules the arena gets when the proposal passes.
	Rules arena.Rules
	// Previous is the snapshot of the rules at proposal time.
	Previous arena.Rules
	// Command is the literal command text.
	Command string
	// Description is the human-readable change.
	Description string
	// Initiator is the proposing player.
	Initiator *arena.Player
	// Victim is the target of kick and mute proposals.
	Victim   *arena.Player
	override override
}

// Tally is the ballot count of a proposal.
type Tally struct {
	// Accept is the amount of yes ballots.
	Accept int
	// Reject is the amount of no ballots.
	Reject int
	// Total is the amount of eligible voters.
	Total int
}

// Options for creating a Booth.
type Options struct {
	Config Config
	// Catalog is required for map and config proposals.
	Catalog Catalog
	// Effects is required for global proposals.
	Effects Effects
	// Defaults are the rules reset proposals restore.
	Defaults arena.Rules
	// OnResolved is called whenever a proposal leaves flight.
	OnResolved func(p Proposal, outcome Outcome)
	Logger     *zap.Logger
}

// Booth holds at most one in-flight proposal of one scope. The global booth
// serves the whole level, arena booths serve one arena each.
type Booth struct {
	scope      Scope
	arena      *arena.Arena
	host       arena.Host
	electorate func() []*arena.Player
	config     Config
	catalog    Catalog
	effects    Effects
	defaults   arena.Rules
	onResolved func(p Proposal, outcome Outcome)
	logger     *zap.Logger
	// index is the round-index of the latest proposal.
	index   int
	current *Proposal
	// nextReport is the frame of the next tally broadcast.
	nextReport clock.Frame
}

func newBooth(scope Scope, host arena.Host, electorate func() []*arena.Player, opts Options) *Booth {
	def := DefaultConfig()
	if opts.Config.DurationSeconds <= 0 {
		opts.Config.DurationSeconds = def.DurationSeconds
	}
	if opts.Config.ThresholdPercent <= 0 || opts.Config.ThresholdPercent >= 100 {
		opts.Config.ThresholdPercent = def.ThresholdPercent
	}
	if opts.Config.CooldownSeconds < 0 {
		opts.Config.CooldownSeconds = 0
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Booth{
		scope:      scope,
		host:       host,
		electorate: electorate,
		config:     opts.Config,
		catalog:    opts.Catalog,
		effects:    opts.Effects,
		defaults:   opts.Defaults,
		onResolved: opts.OnResolved,
		logger:     opts.Logger.With(zap.Stringer("scope", scope)),
	}
}

// NewGlobalBooth creates the Booth for server-wide proposals. The electorate
// returns all players on the server.
func NewGlobalBooth(host arena.Host, electorate func() []*arena.Player, opts Options) *Booth {
	return newBooth(ScopeGlobal, host, electorate, opts)
}

// NewArenaBooth creates the Booth for proposals of the given arena.
func NewArenaBooth(a *arena.Arena, host arena.Host, opts Options) *Booth {
	b := newBooth(ScopeArena, host, a.Players, opts)
	b.arena = a
	b.logger = b.logger.With(zap.Int("arena", a.Number))
	return b
}

// Scope of the booth.
func (b *Booth) Scope() Scope {
	return b.scope
}

// Current returns the in-flight proposal or nil.
func (b *Booth) Current() *Proposal {
	return b.current
}

// InFlight reports whether a proposal is in flight.
func (b *Booth) InFlight() bool {
	return b.current != nil
}

// Index is the round-index of the latest proposal.
func (b *Booth) Index() int {
	return b.index
}

// Eligible reports whether the player counts for this booth. Eligible are
// connected players in scope that are on a team or privileged.
func (b *Booth) Eligible(p *arena.Player) bool {
	if !p.Connected() {
		return false
	}
	if b.scope == ScopeArena && p.Arena != b.arena {
		return false
	}
	return p.Team != nil || p.Privileged
}

func (b *Booth) ballot(p *arena.Player) *arena.Ballot {
	if b.scope == ScopeGlobal {
		return &p.GlobalBallot
	}
	return &p.ArenaBallot
}

func (b *Booth) broadcast(msg string) {
	if b.scope == ScopeArena {
		b.host.PrintArena(b.arena, msg)
		return
	}
	b.host.PrintAll(msg)
}

// Propose validates and starts a proposal of the given kind with the given
// argument string. The initiator's yes is recorded right away, which might
// already decide the proposal.
func (b *Booth) Propose(p *arena.Player, kind Kind, args string, now clock.Frame) (*Proposal, error) {
	if b.config.Disabled {
		return nil, errors.NewForbiddenError(errors.KindVoteDisabled, "voting is disabled", nil)
	}
	if kind.Scope() != b.scope {
		return nil, errors.NewInternalError("proposal routed to wrong booth",
			errors.Details{"kind": kind.String(), "scope": b.scope.String()})
	}
	if b.current != nil {
		return nil, errors.NewForbiddenError(errors.KindVoteInProgress,
			fmt.Sprintf("a vote is already in progress: %s", b.current.Description), nil)
	}
	if !b.Eligible(p) {
		return nil, errors.NewForbiddenError(errors.KindIneligible, "you must be on a team to propose", nil)
	}
	inIntermission := false
	if b.arena != nil {
		inIntermission = b.arena.InIntermission()
	} else if p.Arena != nil {
		inIntermission = p.Arena.InIntermission()
	}
	if inIntermission {
		return nil, errors.NewPhaseViolationError("cannot propose while the round is ending", nil)
	}
	if p.Proposals > 0 && now < p.LastProposal+clock.Seconds(b.config.CooldownSeconds) {
		return nil, errors.NewForbiddenError(errors.KindRateLimited,
			fmt.Sprintf("wait %d seconds between proposals", b.config.CooldownSeconds), nil)
	}
	if b.config.MaxProposals > 0 && p.Proposals >= b.config.MaxProposals {
		return nil, errors.NewForbiddenError(errors.KindRateLimited,
			fmt.Sprintf("you used all of your %d proposals", b.config.MaxProposals), nil)
	}
	if b.config.Mask.Has(kind) {
		return nil, errors.NewForbiddenError(errors.KindVoteDisabled,
			fmt.Sprintf("%s proposals are disabled", kind), errors.Details{"kind": kind.String()})
	}
	proposal := &Proposal{
		Kind:      kind,
		Scope:     b.scope,
		Arena:     b.arena,
		Initiator: p,
		Command:   fmt.Sprintf("vote %s %s", kind, args),
	}
	if b.arena != nil {
		proposal.Previous = b.arena.Rules()
		proposal.Rules = proposal.Previous
	}
	err := b.prepare(proposal, args)
	if err != nil {
		return nil, err
	}
	b.index++
	proposal.Index = b.index
	proposal.Expires = now + clock.Seconds(b.config.DurationSeconds)
	b.current = proposal
	b.nextReport = now + clock.FramesPerSecond
	p.Proposals++
	p.LastProposal = now
	b.logger.Debug("proposal started", zap.String("kind", kind.String()), zap.String("initiator", p.Name),
		zap.Int("index", proposal.Index))
	b.broadcast(fmt.Sprintf("%s proposed %s. Type yes or no to vote.", p.Name, proposal.Description))
	b.record(p, true)
	b.Resolve(now)
	return proposal, nil
}

// Cast records the ballot of the player for the in-flight proposal. Ballots
// of privileged players decide the proposal on their own.
func (b *Booth) Cast(p *arena.Player, accept bool, now clock.Frame) error {
	if b.current == nil {
		return errors.NewBadRequestError(errors.KindNoVote, "there is no vote in progress", nil)
	}
	if !b.Eligible(p) {
		return errors.NewForbiddenError(errors.KindIneligible, "you must be on a team to vote", nil)
	}
	b.record(p, accept)
	b.Resolve(now)
	return nil
}

func (b *Booth) record(p *arena.Player, accept bool) {
	*b.ballot(p) = arena.Ballot{
		Index:  b.current.Index,
		Accept: accept,
	}
	if p.Privileged {
		if accept {
			b.current.override = overrideAccept
		} else {
			b.current.override = overrideReject
		}
	}
}

// Tally counts the ballots for the in-flight proposal. Only ballots carrying
// the current round-index count.
func (b *Booth) Tally() Tally {
	var t Tally
	if b.current == nil {
		return t
	}
	for _, p := range b.electorate() {
		if !b.Eligible(p) {
			continue
		}
		t.Total++
		ballot := b.ballot(p)
		if ballot.Index != b.current.Index {
			continue
		}
		if ballot.Accept {
			t.Accept++
		} else {
			t.Reject++
		}
	}
	switch b.current.override {
	case overrideAccept:
		t.Accept = t.Total
		t.Reject = 0
	case overrideReject:
		t.Accept = 0
		t.Reject = t.Total
	}
	return t
}

// Resolve decides the in-flight proposal if possible and returns the outcome.
func (b *Booth) Resolve(now clock.Frame) Outcome {
	p := b.current
	if p == nil {
		return OutcomePending
	}
	if !p.Initiator.Connected() {
		b.finish(OutcomeAborted, "Vote aborted: initiator disconnected")
		return OutcomeAborted
	}
	if p.Victim != nil && !p.Victim.Connected() {
		b.finish(OutcomeAborted, fmt.Sprintf("Vote aborted: %s disconnected", p.Victim.Name))
		return OutcomeAborted
	}
	t := b.Tally()
	if t.Total == 0 {
		b.finish(OutcomeAborted, "Vote aborted: no eligible voters")
		return OutcomeAborted
	}
	threshold := b.config.ThresholdPercent
	switch {
	case t.Accept*100 > threshold*t.Total:
		b.current = nil
		b.broadcast(fmt.Sprintf("Vote passed: %s", p.Description))
		err := b.apply(p)
		if err != nil {
			errors.Log(b.logger, errors.Wrap(err, "apply proposal", errors.Details{"kind": p.Kind.String()}))
			b.broadcast(fmt.Sprintf("Could not apply %s: %s", p.Description, errors.UserMessage(err)))
		}
		b.notify(*p, OutcomePassed)
		return OutcomePassed
	case t.Reject*100 > threshold*t.Total:
		b.finish(OutcomeRejected, fmt.Sprintf("Vote failed: %s", p.Description))
		return OutcomeRejected
	case now >= p.Expires:
		b.finish(OutcomeTimedOut, fmt.Sprintf("Vote timed out: %s", p.Description))
		return OutcomeTimedOut
	}
	return OutcomePending
}

func (b *Booth) finish(outcome Outcome, msg string) {
	p := *b.current
	b.current = nil
	b.broadcast(msg)
	b.notify(p, outcome)
}

func (b *Booth) notify(p Proposal, outcome Outcome) {
	b.logger.Debug("proposal resolved", zap.String("kind", p.Kind.String()), zap.Int("index", p.Index),
		zap.Stringer("outcome", outcome))
	if b.onResolved != nil {
		b.onResolved(p, outcome)
	}
}

// Tick broadcasts the tally once per second and resolves the in-flight
// proposal.
func (b *Booth) Tick(now clock.Frame) {
	if b.current == nil {
		return
	}
	if now >= b.nextReport {
		b.nextReport = now + clock.FramesPerSecond
		t := b.Tally()
		remaining := 0
		if b.current.Expires > now {
			remaining = int((b.current.Expires - now + clock.FramesPerSecond - 1) / clock.FramesPerSecond)
		}
		b.broadcast(fmt.Sprintf("Vote %s: yes %d, no %d of %d, %ds left", b.current.Description,
			t.Accept, t.Reject, t.Total, remaining))
	}
	b.Resolve(now)
}
