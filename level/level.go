// Package level holds the state of a loaded map and drives all arenas and
// votes frame by frame.
package level

import (
	"fmt"
	"github.com/gobuffalo/nulls"
	"github.com/google/uuid"
	"github.com/lefinal/arena-server/arena"
	"github.com/lefinal/arena-server/clock"
	"github.com/lefinal/arena-server/errors"
	"github.com/lefinal/arena-server/event"
	"github.com/lefinal/arena-server/vote"
	"go.uber.org/zap"
)

// Host is the engine the level runs in.
type Host interface {
	arena.Host
	// Kick removes the player from the server.
	Kick(p *arena.Player, reason string)
	// Mute mutes or unmutes the chat of the player.
	Mute(p *arena.Player, muted bool)
	// ChangeMap loads the given map. The engine reports the new level with a
	// level-loaded event.
	ChangeMap(name string)
}

// Observer receives events about arenas and votes.
type Observer interface {
	Observe(e event.Envelope)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(e event.Envelope)

// Observe calls f(e).
func (f ObserverFunc) Observe(e event.Envelope) {
	f(e)
}

type nopObserver struct{}

func (nopObserver) Observe(event.Envelope) {}

// Config holds the settings for all arenas and votes of a level.
type Config struct {
	// Arena holds the arena timings.
	Arena arena.Config
	// Vote holds the voting settings.
	Vote vote.Config
	// Rules are the rules arenas start with and reset proposals restore.
	Rules arena.Rules
}

// DefaultConfig returns the default level config.
func DefaultConfig() Config {
	return Config{
		Arena: arena.DefaultConfig(),
		Vote:  vote.DefaultConfig(),
		Rules: arena.DefaultRules(),
	}
}

// Options for New.
type Options struct {
	// Map is the name of the loaded map.
	Map string
	// Arenas are the arenas declared by the map. If empty, a single arena is
	// created.
	Arenas []event.ArenaDeclaration
	Config Config
	// Catalog holds the available maps and rule presets.
	Catalog vote.Catalog
	// Observer is optional.
	Observer Observer
	Logger   *zap.Logger
}

// Level is the state of one loaded map. All methods must be called from the
// same goroutine.
type Level struct {
	mapName  string
	host     Host
	config   Config
	catalog  vote.Catalog
	observer Observer
	logger   *zap.Logger
	frame    clock.Frame
	// arenas is sorted by number.
	arenas []*arena.Arena
	booths map[*arena.Arena]*vote.Booth
	global *vote.Booth
	// players holds all connected players by session id.
	players map[uuid.UUID]*arena.Player
	// order holds the connected players in order of connecting.
	order []*arena.Player
}

// New creates the Level for the given map.
func New(host Host, opts Options) (*Level, error) {
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Config.Rules.RoundLimit == 0 {
		opts.Config.Rules = arena.DefaultRules()
	}
	if len(opts.Arenas) > arena.MaxArenas {
		return nil, errors.Error{
			Code:    errors.ErrBadRequest,
			Kind:    errors.KindInvalidConfig,
			Message: fmt.Sprintf("map declares %d arenas but at most %d are supported", len(opts.Arenas), arena.MaxArenas),
			Details: errors.Details{"map": opts.Map},
		}
	}
	l := &Level{
		mapName:  opts.Map,
		host:     host,
		config:   opts.Config,
		catalog:  opts.Catalog,
		observer: opts.Observer,
		logger:   opts.Logger.With(zap.String("map", opts.Map)),
		booths:   make(map[*arena.Arena]*vote.Booth),
		players:  make(map[uuid.UUID]*arena.Player),
		order:    make([]*arena.Player, 0),
	}
	declarations := opts.Arenas
	if len(declarations) == 0 {
		declarations = []event.ArenaDeclaration{{Number: 1}}
	}
	seen := make(map[int]struct{})
	for _, declaration := range declarations {
		if declaration.Number < 1 || declaration.Number > arena.MaxArenas {
			return nil, errors.NewBadRequestError(errors.KindInvalidConfig,
				fmt.Sprintf("arena number must be between 1 and %d", arena.MaxArenas),
				errors.Details{"number": declaration.Number})
		}
		if _, ok := seen[declaration.Number]; ok {
			return nil, errors.NewBadRequestError(errors.KindInvalidConfig, "duplicate arena number",
				errors.Details{"number": declaration.Number})
		}
		seen[declaration.Number] = struct{}{}
		teams := 2
		if declaration.Teams.Valid {
			teams = declaration.Teams.Int
		}
		a := arena.New(declaration.Number, declaration.Name.String, host, arena.Options{
			TeamCount: teams,
			Rules:     opts.Config.Rules,
			Config:    opts.Config.Arena,
			Listener:  l,
			Logger:    l.logger,
		})
		l.arenas = append(l.arenas, a)
		l.booths[a] = vote.NewArenaBooth(a, host, l.voteOptions())
	}
	arena.SortByNumber(l.arenas)
	l.global = vote.NewGlobalBooth(host, l.connectedPlayers, l.voteOptions())
	return l, nil
}

func (l *Level) voteOptions() vote.Options {
	return vote.Options{
		Config:     l.config.Vote,
		Catalog:    l.catalog,
		Effects:    l,
		Defaults:   l.config.Rules,
		OnResolved: l.voteResolved,
		Logger:     l.logger,
	}
}

// Map is the name of the loaded map.
func (l *Level) Map() string {
	return l.mapName
}

// Frame is the current frame.
func (l *Level) Frame() clock.Frame {
	return l.frame
}

// Arenas returns all arenas sorted by number.
func (l *Level) Arenas() []*arena.Arena {
	return l.arenas
}

// Arena returns the arena with the given number.
func (l *Level) Arena(number int) (*arena.Arena, error) {
	for _, a := range l.arenas {
		if a.Number == number {
			return a, nil
		}
	}
	return nil, errors.Error{
		Code:    errors.ErrNotFound,
		Kind:    errors.KindArenaNotFound,
		Message: fmt.Sprintf("there is no arena %d", number),
		Details: errors.Details{"arena": number},
	}
}

// Booth returns the vote booth of the given arena.
func (l *Level) Booth(a *arena.Arena) *vote.Booth {
	return l.booths[a]
}

// GlobalBooth returns the booth for server-wide proposals.
func (l *Level) GlobalBooth() *vote.Booth {
	return l.global
}

// Player returns the connected player with the given id.
func (l *Level) Player(id uuid.UUID) (*arena.Player, error) {
	p, ok := l.players[id]
	if !ok {
		return nil, errors.Error{
			Code:    errors.ErrNotFound,
			Kind:    errors.KindPlayerNotFound,
			Message: "unknown player",
			Details: errors.Details{"player_id": id.String()},
		}
	}
	return p, nil
}

func (l *Level) connectedPlayers() []*arena.Player {
	return l.order
}

// Players returns all connected players in order of connecting.
func (l *Level) Players() []*arena.Player {
	return l.order
}

// Tick advances the level by one frame. Arenas are ticked before their booths
// and the global booth is ticked last.
func (l *Level) Tick() {
	l.frame++
	for _, a := range l.arenas {
		a.Tick(l.frame)
		l.booths[a].Tick(l.frame)
	}
	l.global.Tick(l.frame)
}

// Connect registers the player and places the player as spectator in the first arena.
// Reconnecting players keep their session.
func (l *Level) Connect(id uuid.UUID, name string, privileged bool) *arena.Player {
	if p, ok := l.players[id]; ok {
		p.Name = name
		p.Privileged = privileged
		if p.Conn == arena.ConnDisconnected {
			p.Conn = arena.ConnPregame
		}
		return p
	}
	p := arena.NewPlayer(id, name, privileged)
	l.players[id] = p
	l.order = append(l.order, p)
	l.arenas[0].Enter(p)
	l.logger.Debug("player connected", zap.String("player", name), zap.Int("arena", p.Arena.Number))
	return p
}

// Disconnect removes the player. In-flight proposals the player initiated or that
// target the player are aborted on the next tick.
func (l *Level) Disconnect(id uuid.UUID) error {
	p, err := l.Player(id)
	if err != nil {
		return err
	}
	p.Conn = arena.ConnDisconnected
	if p.Arena != nil {
		p.Arena.Leave(p)
	}
	delete(l.players, id)
	for i, member := range l.order {
		if member == p {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	l.logger.Debug("player disconnected", zap.String("player", p.Name))
	return nil
}

// SetConnState updates the connectivity state reported by the engine.
func (l *Level) SetConnState(id uuid.UUID, state string) error {
	p, err := l.Player(id)
	if err != nil {
		return err
	}
	switch state {
	case "pregame":
		p.Conn = arena.ConnPregame
	case "spectator":
		p.Conn = arena.ConnSpectator
	case "in-play":
		p.Conn = arena.ConnInPlay
	default:
		return errors.NewBadRequestError(errors.KindInvalidArgument, "unknown connection state",
			errors.Details{"state": state})
	}
	return nil
}

// PlayerKilled marks the player dead in its arena.
func (l *Level) PlayerKilled(id uuid.UUID) error {
	p, err := l.Player(id)
	if err != nil {
		return err
	}
	if p.Arena != nil {
		p.Arena.PlayerKilled(p)
	}
	return nil
}

// RecordDamage adds damage to the arena accumulators. Damage across arenas is
// ignored.
func (l *Level) RecordDamage(attackerID uuid.UUID, targetID uuid.UUID, amount int) error {
	attacker, err := l.Player(attackerID)
	if err != nil {
		return errors.Wrap(err, "attacker", nil)
	}
	target, err := l.Player(targetID)
	if err != nil {
		return errors.Wrap(err, "target", nil)
	}
	if attacker.Arena == nil || attacker.Arena != target.Arena {
		return nil
	}
	attacker.Arena.RecordDamage(attacker, target, amount)
	return nil
}

// Kick kicks the player through the host and removes the player.
func (l *Level) Kick(p *arena.Player, reason string) {
	l.host.Kick(p, reason)
	err := l.Disconnect(p.ID)
	if err != nil {
		errors.Log(l.logger, errors.Wrap(err, "disconnect kicked player", nil))
	}
}

// Mute sets the mute flag and forwards it to the host.
func (l *Level) Mute(p *arena.Player, muted bool) {
	p.Muted = muted
	l.host.Mute(p, muted)
}

// ChangeMap requests the map change from the host.
func (l *Level) ChangeMap(name string) {
	l.logger.Info("changing map", zap.String("to", name))
	l.host.ChangeMap(name)
}

func points(a *arena.Arena) map[string]int {
	m := make(map[string]int, len(a.Teams()))
	for _, t := range a.Teams() {
		m[t.Name] = t.Points
	}
	return m
}

func teamName(t *arena.Team) nulls.String {
	if t == nil {
		return nulls.String{}
	}
	return nulls.NewString(t.Name)
}

// StateChanged publishes the arena state change.
func (l *Level) StateChanged(a *arena.Arena, from arena.State, to arena.State) {
	l.observer.Observe(event.Envelope{
		Type: event.TypeArenaState,
		Payload: event.ArenaStateEvent{
			Arena: a.Number,
			From:  from.String(),
			To:    to.String(),
			Round: a.Round(),
		},
	})
}

// RoundEnded publishes the round result.
func (l *Level) RoundEnded(a *arena.Arena, result arena.RoundResult) {
	l.observer.Observe(event.Envelope{
		Type: event.TypeRoundEnded,
		Payload: event.RoundEndedEvent{
			Arena:  a.Number,
			Round:  result.Round,
			Winner: teamName(result.Winner),
			Points: points(a),
		},
	})
}

// MatchEnded publishes the match result.
func (l *Level) MatchEnded(a *arena.Arena, winner *arena.Team) {
	l.logger.Info("match ended", zap.Int("arena", a.Number), zap.String("winner", teamName(winner).String))
	l.observer.Observe(event.Envelope{
		Type: event.TypeMatchEnded,
		Payload: event.MatchEndedEvent{
			Arena:  a.Number,
			Winner: teamName(winner),
			Points: points(a),
		},
	})
}

func (l *Level) voteResolved(p vote.Proposal, outcome vote.Outcome) {
	e := event.VoteResolvedEvent{
		Scope:       p.Scope.String(),
		Kind:        p.Kind.String(),
		Description: p.Description,
		Initiator:   p.Initiator.Name,
		Outcome:     outcome.String(),
	}
	if p.Arena != nil {
		e.Arena = nulls.NewInt(p.Arena.Number)
	}
	l.observer.Observe(event.Envelope{
		Type:    event.TypeVoteResolved,
		Payload: e,
	})
}
