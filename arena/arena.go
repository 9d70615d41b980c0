package arena

import (
	"fmt"
	"github.com/lefinal/arena-server/clock"
	"github.com/lefinal/arena-server/errors"
	"go.uber.org/zap"
	"sort"
	"strings"
)

// MaxArenas is the maximum amount of arenas per level.
const MaxArenas = 9

// State is the match state of an Arena.
type State int

// States in lifecycle order. Every state from StatePlay on counts as
// mid-match.
const (
	// StateWarmup is used while waiting for all teams to be ready.
	StateWarmup State = iota
	// StateCountdown is used while counting down to round start.
	StateCountdown
	// StatePlay is used while a round is running.
	StatePlay
	// StateTimeout is used while a round is frozen by a timeout.
	StateTimeout
)

func (s State) String() string {
	switch s {
	case StateWarmup:
		return "warmup"
	case StateCountdown:
		return "countdown"
	case StatePlay:
		return "play"
	case StateTimeout:
		return "timeout"
	}
	return "unknown"
}

// GameType selects the round winner predicate.
type GameType string

const (
	// GameTypeTeam is team elimination: the last team standing wins the round.
	GameTypeTeam GameType = "team"
	// GameTypeFFA is free-for-all. Its frame logic is not implemented.
	GameTypeFFA GameType = "ffa"
	// GameTypeRedRover flips teams on frags. Its frame logic is not
	// implemented.
	GameTypeRedRover GameType = "red-rover"
)

// Host is the simulation engine the arena runs in.
type Host interface {
	// PrintTo sends a line to a single player.
	PrintTo(p *Player, msg string)
	// PrintArena sends a line to everybody in the arena including spectators.
	PrintArena(a *Arena, msg string)
	// PrintAll sends a line to everybody on the server.
	PrintAll(msg string)
	// Respawn forces the player into play with the inventory, health and armor
	// described by the rules.
	Respawn(p *Player, rules Rules)
	// Spectate moves the player out of play.
	Spectate(p *Player)
	// ApplySkin sets the skin of the player.
	ApplySkin(p *Player, skin string)
	// RefreshStatus rebuilds the status bar of the player after rule changes.
	RefreshStatus(p *Player, rules Rules)
}

// RoundResult is the outcome of a round.
type RoundResult struct {
	// Round is the number of the round.
	Round int
	// Winner is the winning team or nil for a draw.
	Winner *Team
}

// Listener is notified of arena lifecycle changes.
type Listener interface {
	StateChanged(a *Arena, from State, to State)
	RoundEnded(a *Arena, result RoundResult)
	MatchEnded(a *Arena, winner *Team)
}

type nopListener struct{}

func (nopListener) StateChanged(*Arena, State, State) {}

func (nopListener) RoundEnded(*Arena, RoundResult) {}

func (nopListener) MatchEnded(*Arena, *Team) {}

// Config holds the timings of an Arena.
type Config struct {
	// GameType selects the round winner predicate.
	GameType GameType `json:"game_type"`
	// CountdownSeconds is the length of the round start countdown.
	CountdownSeconds int `json:"countdown_seconds"`
	// RoundEndDelay is the amount of frames between the winner being decided
	// and the round actually ending.
	RoundEndDelay int `json:"round_end_delay"`
	// TimeoutSeconds is the length of a timeout.
	TimeoutSeconds int `json:"timeout_seconds"`
	// TimeinSeconds is the warning window before play resumes.
	TimeinSeconds int `json:"timein_seconds"`
}

// DefaultConfig returns the default timings.
func DefaultConfig() Config {
	return Config{
		GameType:         GameTypeTeam,
		CountdownSeconds: 10,
		RoundEndDelay:    2 * clock.FramesPerSecond,
		TimeoutSeconds:   60,
		TimeinSeconds:    5,
	}
}

// Options for New.
type Options struct {
	// TeamCount is the amount of teams between MinTeams and MaxTeams.
	TeamCount int
	// Rules the arena starts with.
	Rules Rules
	// Config holds timings. Zero values are replaced with defaults.
	Config Config
	// Listener is optional.
	Listener Listener
	// Logger is optional.
	Logger *zap.Logger
}

// Arena is an independent match context with its own teams, round state and
// clocks.
type Arena struct {
	// Number identifies the arena in the level.
	Number int
	// Name is the display name.
	Name     string
	config   Config
	host     Host
	listener Listener
	logger   *zap.Logger
	teams    []*Team
	state    State
	// preTimeoutState is restored when a timeout ends.
	preTimeoutState State
	round           int
	ready           bool
	rules           Rules
	// players holds everybody in the arena in order of entering.
	players []*Player
	// countdown drives the round start.
	countdown *clock.Clock
	// intermission drives the delay between a decided round and its end.
	intermission *clock.Clock
	// timeout drives the resumption of a frozen round.
	timeout       *clock.Clock
	timeoutCaller *Player
	timeoutStart  clock.Frame
	// result is the recorded outcome of the current round. It is set exactly once
	// per round when the winner is decided.
	result    *RoundResult
	playStart clock.Frame
	// modeErrLogged avoids logging unimplemented game types every frame.
	modeErrLogged bool
	// now is the frame of the last tick.
	now clock.Frame
}

// New creates an Arena in StateWarmup.
func New(number int, name string, host Host, opts Options) *Arena {
	def := DefaultConfig()
	if opts.Config.GameType == "" {
		opts.Config.GameType = def.GameType
	}
	if opts.Config.CountdownSeconds <= 0 {
		opts.Config.CountdownSeconds = def.CountdownSeconds
	}
	if opts.Config.RoundEndDelay <= 0 {
		opts.Config.RoundEndDelay = def.RoundEndDelay
	}
	if opts.Config.TimeoutSeconds <= 0 {
		opts.Config.TimeoutSeconds = def.TimeoutSeconds
	}
	if opts.Config.TimeinSeconds <= 0 {
		opts.Config.TimeinSeconds = def.TimeinSeconds
	}
	if opts.Listener == nil {
		opts.Listener = nopListener{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Rules.RoundLimit < MinRoundLimit {
		opts.Rules.RoundLimit = MinRoundLimit
	}
	if name == "" {
		name = fmt.Sprintf("Arena %d", number)
	}
	a := &Arena{
		Number:   number,
		Name:     name,
		config:   opts.Config,
		host:     host,
		listener: opts.Listener,
		logger:   opts.Logger.With(zap.Int("arena", number)),
		state:    StateWarmup,
		round:    1,
		rules:    opts.Rules,
		players:  make([]*Player, 0),
	}
	a.teams = makeTeams(opts.TeamCount)
	a.countdown = clock.New("countdown", a, clock.FramesPerSecond)
	a.countdown.OnTick = clock.TickFunc(a.countdownTicked)
	a.countdown.OnDone = clock.DoneFunc(a.countdownDone)
	a.intermission = clock.New("intermission", a, 1)
	a.intermission.OnDone = clock.DoneFunc(a.intermissionDone)
	a.timeout = clock.New("timeout", a, clock.FramesPerSecond)
	a.timeout.OnTick = clock.TickFunc(a.timeoutTicked)
	a.timeout.OnDone = clock.DoneFunc(a.timeoutDone)
	return a
}

func makeTeams(count int) []*Team {
	if count < MinTeams {
		count = MinTeams
	}
	if count > MaxTeams {
		count = MaxTeams
	}
	teams := make([]*Team, 0, count)
	for i := 1; i <= count; i++ {
		teams = append(teams, newTeam(i))
	}
	return teams
}

// State is the current match state.
func (a *Arena) State() State {
	return a.state
}

// Round is the current round number.
func (a *Arena) Round() int {
	return a.round
}

// Ready describes whether all teams are ready.
func (a *Arena) Ready() bool {
	return a.ready
}

// Rules returns the current rules.
func (a *Arena) Rules() Rules {
	return a.rules
}

// Config returns the arena timings.
func (a *Arena) Config() Config {
	return a.config
}

// Teams returns the teams in slot order.
func (a *Arena) Teams() []*Team {
	return a.teams
}

// Team returns the team with the given number starting at 1.
func (a *Arena) Team(number int) (*Team, error) {
	if number < 1 || number > len(a.teams) {
		return nil, errors.NewBadRequestError(errors.KindInvalidArgument,
			fmt.Sprintf("team must be between 1 and %d", len(a.teams)), errors.Details{"team": number})
	}
	return a.teams[number-1], nil
}

// Players returns everybody in the arena.
func (a *Arena) Players() []*Player {
	return a.players
}

// Spectators returns everybody in the arena that is not on a team.
func (a *Arena) Spectators() []*Player {
	spectators := make([]*Player, 0)
	for _, p := range a.players {
		if p.Team == nil {
			spectators = append(spectators, p)
		}
	}
	return spectators
}

// InProgress describes whether a round is running or frozen.
func (a *Arena) InProgress() bool {
	return a.state >= StatePlay
}

// MidMatch describes whether a match is past its first countdown. This is the
// case while a round is running and between rounds.
func (a *Arena) MidMatch() bool {
	return a.InProgress() || a.round > 1
}

// InIntermission describes whether a decided round is waiting for its end.
func (a *Arena) InIntermission() bool {
	return a.intermission.Running()
}

// TimeoutCaller is the player that called the running timeout or nil.
func (a *Arena) TimeoutCaller() *Player {
	return a.timeoutCaller
}

// CountdownClock exposes the round start clock for display.
func (a *Arena) CountdownClock() *clock.Clock {
	return a.countdown
}

// TimeoutClock exposes the timeout clock for display.
func (a *Arena) TimeoutClock() *clock.Clock {
	return a.timeout
}

// Now is the frame of the last tick.
func (a *Arena) Now() clock.Frame {
	return a.now
}

// StatusLine is a human-readable match status.
func (a *Arena) StatusLine() string {
	scores := make([]string, 0, len(a.teams))
	for _, t := range a.teams {
		scores = append(scores, fmt.Sprintf("%s %d", t.Name, t.Points))
	}
	return fmt.Sprintf("%s: %s, round %d/%d, %s", a.Name, a.state, a.round, a.rules.RoundLimit,
		strings.Join(scores, " - "))
}

func (a *Arena) setState(to State) {
	from := a.state
	if from == to {
		return
	}
	a.state = to
	a.logger.Debug("arena state changed", zap.Stringer("from", from), zap.Stringer("to", to))
	a.listener.StateChanged(a, from, to)
}

// Enter moves the player into the arena as spectator. The player leaves the previous
// arena first.
func (a *Arena) Enter(p *Player) {
	if p.Arena == a {
		return
	}
	if p.Arena != nil {
		p.Arena.Leave(p)
	}
	a.players = append(a.players, p)
	p.Arena = a
	p.ArenaBallot = Ballot{}
	a.host.Spectate(p)
	a.host.PrintArena(a, fmt.Sprintf("%s entered %s", p.Name, a.Name))
}

// Leave removes the player from the arena and its team.
func (a *Arena) Leave(p *Player) {
	if p.Arena != a {
		return
	}
	if p.Team != nil {
		_ = a.Part(p, true)
	}
	for i, member := range a.players {
		if member == p {
			a.players = append(a.players[:i], a.players[i+1:]...)
			break
		}
	}
	if a.timeoutCaller == p {
		a.timeoutCaller = nil
	}
	p.Arena = nil
}

// Join adds the player to the given team. Unless forced, joining is rejected
// during a match and for locked teams. The player leaves its old team
// silently first.
func (a *Arena) Join(p *Player, t *Team, forced bool) error {
	if p.Arena != a {
		return errors.NewBadRequestError(errors.KindInvalidArgument,
			fmt.Sprintf("%s is not in %s", p.Name, a.Name), nil)
	}
	if t == nil || !a.hasTeam(t) {
		return errors.NewBadRequestError(errors.KindInvalidArgument, "unknown team", nil)
	}
	if p.Team == t {
		return errors.NewBadRequestError(errors.KindInvalidArgument,
			fmt.Sprintf("already on team %s", t.Name), nil)
	}
	if !forced && a.MidMatch() {
		return errors.NewPhaseViolationError("cannot join while a match is running", nil)
	}
	if !forced && t.locked {
		return errors.NewForbiddenError(errors.KindTeamLocked, fmt.Sprintf("team %s is locked", t.Name),
			errors.Details{"team": t.Number})
	}
	if t.count >= MaxTeamPlayers {
		return errors.NewForbiddenError(errors.KindTeamFull, fmt.Sprintf("team %s is full", t.Name),
			errors.Details{"team": t.Number})
	}
	if old := p.Team; old != nil {
		old.remove(p)
	}
	p.Ready = false
	p.Alive = false
	if err := t.add(p); err != nil {
		return errors.Wrap(err, "add to team", nil)
	}
	p.Skin = t.Skin
	a.host.ApplySkin(p, t.Skin)
	if a.InProgress() {
		// Players picked into a running round wait for the next one.
		a.host.Spectate(p)
	} else {
		p.Alive = true
		t.alive++
		a.host.Respawn(p, a.rules)
	}
	a.host.PrintArena(a, fmt.Sprintf("%s joined team %s", p.Name, t.Name))
	a.evaluateReadiness(fmt.Sprintf("%s joined team %s", p.Name, t.Name))
	return nil
}

// Part removes the player from its team. The broadcast can be suppressed with
// silent. The player's ready flag is cleared.
func (a *Arena) Part(p *Player, silent bool) error {
	t := p.Team
	if t == nil || !a.hasTeam(t) {
		return errors.NewBadRequestError(errors.KindNotOnTeam, "you are not on a team", nil)
	}
	t.remove(p)
	p.Ready = false
	p.Alive = false
	a.host.Spectate(p)
	if !silent {
		a.host.PrintArena(a, fmt.Sprintf("%s left team %s", p.Name, t.Name))
	}
	a.evaluateReadiness(fmt.Sprintf("%s left team %s", p.Name, t.Name))
	return nil
}

// SetReady sets the individual ready flag of the player.
func (a *Arena) SetReady(p *Player, ready bool) error {
	if p.Team == nil || !a.hasTeam(p.Team) {
		return errors.NewBadRequestError(errors.KindNotOnTeam, "you must be on a team to ready up", nil)
	}
	if a.MidMatch() {
		return errors.NewPhaseViolationError("the match is already running", nil)
	}
	if p.Ready == ready {
		return nil
	}
	p.Ready = ready
	if ready {
		a.host.PrintArena(a, fmt.Sprintf("%s is ready", p.Name))
	} else {
		a.host.PrintArena(a, fmt.Sprintf("%s is not ready", p.Name))
	}
	a.evaluateReadiness(fmt.Sprintf("%s is not ready", p.Name))
	return nil
}

// PlayerKilled marks the player dead for the current round.
func (a *Arena) PlayerKilled(p *Player) {
	if p.Team == nil || !a.hasTeam(p.Team) || !p.Alive {
		return
	}
	p.Alive = false
	if p.Team.alive > 0 {
		p.Team.alive--
	}
}

// RecordDamage adds the damage to the team and player accumulators.
func (a *Arena) RecordDamage(attacker *Player, target *Player, amount int) {
	if amount <= 0 {
		return
	}
	if attacker != nil && attacker.Team != nil && a.hasTeam(attacker.Team) {
		attacker.DamageDealt += amount
		attacker.Team.DamageDealt += amount
	}
	if target != nil && target.Team != nil && a.hasTeam(target.Team) {
		target.DamageTaken += amount
		target.Team.DamageTaken += amount
	}
}

// SetRules replaces the rules and refreshes the status of everybody in the
// arena. The round limit is raised to the current round if needed.
func (a *Arena) SetRules(rules Rules) {
	if rules.RoundLimit < a.round {
		rules.RoundLimit = a.round
	}
	a.rules = rules
	for _, p := range a.players {
		a.host.RefreshStatus(p, rules)
	}
}

// SetTeamCount recreates all teams. Everybody becomes a spectator and the
// arena returns to warmup.
func (a *Arena) SetTeamCount(count int) error {
	if count < MinTeams || count > MaxTeams {
		return errors.NewBadRequestError(errors.KindInvalidArgument,
			fmt.Sprintf("team count must be between %d and %d", MinTeams, MaxTeams), nil)
	}
	for _, t := range a.teams {
		for _, p := range t.Players() {
			t.remove(p)
			p.Ready = false
			p.Alive = false
			a.host.Spectate(p)
		}
	}
	a.teams = makeTeams(count)
	a.resetMatch()
	a.host.PrintArena(a, fmt.Sprintf("%s now has %d teams", a.Name, count))
	return nil
}

// resetMatch stops all clocks and returns to warmup. Individual ready flags
// are kept.
func (a *Arena) resetMatch() {
	a.countdown.Reset()
	a.intermission.Reset()
	a.timeout.Reset()
	a.timeoutCaller = nil
	a.result = nil
	a.round = 1
	a.ready = false
	for _, t := range a.teams {
		t.updateReady()
		if t.lockedByMatch {
			t.locked = false
			t.lockedByMatch = false
		}
	}
	a.setState(StateWarmup)
}

func (a *Arena) hasTeam(t *Team) bool {
	for _, member := range a.teams {
		if member == t {
			return true
		}
	}
	return false
}

// SortByNumber sorts the arenas by their number.
func SortByNumber(arenas []*Arena) {
	sort.SliceStable(arenas, func(i, j int) bool {
		return arenas[i].Number < arenas[j].Number
	})
}
