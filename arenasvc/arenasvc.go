// Package arenasvc runs the level frame by frame and connects it to the
// simulation engine via the portal.
package arenasvc

import (
	"context"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/lefinal/arena-server/clock"
	"github.com/lefinal/arena-server/errors"
	"github.com/lefinal/arena-server/event"
	"github.com/lefinal/arena-server/level"
	"github.com/lefinal/arena-server/portal"
	"github.com/lefinal/arena-server/store"
	"github.com/lefinal/arena-server/vote"
	"go.uber.org/zap"
	"sync"
	"time"
)

// FrameDuration is the real time of one frame.
const FrameDuration = time.Second / clock.FramesPerSecond

// DefaultSnapshotInterval is used if no snapshot interval is configured.
const DefaultSnapshotInterval = time.Second

// inboundBuffer is the amount of engine events that may queue up until the
// next frame is processed.
const inboundBuffer = 256

// recordTimeout is the timeout for storing match results.
const recordTimeout = 5 * time.Second

// Config for the Service.
type Config struct {
	// Level holds arena, vote and rule settings for each loaded level.
	Level level.Config
	// InitialMap is the map name of the level that runs until the engine reports
	// a loaded level.
	InitialMap string
	// SnapshotInterval is the interval for publishing level snapshots.
	SnapshotInterval time.Duration
}

// Feed receives all arena events, for example to forward them to websocket
// clients.
type Feed interface {
	Broadcast(e event.Envelope)
}

// MatchRecorder stores results of finished matches.
type MatchRecorder interface {
	RecordMatchResult(ctx context.Context, result store.MatchResult) (store.MatchResult, error)
}

// Options are optional dependencies for New.
type Options struct {
	Feed     Feed
	Recorder MatchRecorder
}

// Service owns the level. Everything regarding the level happens on the
// goroutine running Run.
type Service struct {
	logger   *zap.Logger
	portal   portal.Portal
	clock    clockwork.Clock
	catalog  vote.Catalog
	config   Config
	feed     Feed
	recorder MatchRecorder
	// host is set when running.
	host  *portalHost
	level *level.Level
	// lastSnapshot is the latest published snapshot. It is locked using
	// lastSnapshotMutex as it is read from HTTP handlers.
	lastSnapshot      event.LevelSnapshot
	hasSnapshot       bool
	lastSnapshotMutex sync.RWMutex
}

// New creates a Service that can be run with Service.Run.
func New(logger *zap.Logger, p portal.Portal, c clockwork.Clock, catalog vote.Catalog, config Config,
	opts Options) *Service {
	if config.SnapshotInterval <= 0 {
		config.SnapshotInterval = DefaultSnapshotInterval
	}
	return &Service{
		logger:   logger,
		portal:   p,
		clock:    c,
		catalog:  catalog,
		config:   config,
		feed:     opts.Feed,
		recorder: opts.Recorder,
	}
}

// Run the service until the given context.Context is done.
func (s *Service) Run(ctx context.Context) error {
	s.host = &portalHost{ctx: ctx, portal: s.portal}
	err := s.loadLevel(s.config.InitialMap, nil)
	if err != nil {
		return errors.Wrap(err, "load initial level", errors.Details{"map": s.config.InitialMap})
	}
	lifetime, cancel := context.WithCancel(ctx)
	defer cancel()
	inbound := make(chan func(), inboundBuffer)
	s.subscribe(lifetime, inbound)
	frameTicker := s.clock.NewTicker(FrameDuration)
	defer frameTicker.Stop()
	snapshotTicker := s.clock.NewTicker(s.config.SnapshotInterval)
	defer snapshotTicker.Stop()
	s.logger.Debug("running frame loop", zap.Duration("frame_duration", FrameDuration))
	for {
		select {
		case <-ctx.Done():
			return nil
		case handle := <-inbound:
			handle()
		case <-frameTicker.Chan():
			s.level.Tick()
		case <-snapshotTicker.Chan():
			s.publishSnapshot()
		}
	}
}

// forward subscribes to the given topic and queues handling of each received
// payload.
func forward[T any](ctx context.Context, p portal.Portal, topic portal.Topic, inbound chan<- func(), handle func(T)) {
	newsletter := portal.Subscribe[T](ctx, p, topic)
	go func() {
		for e := range newsletter.Receive {
			payload := e.Payload
			select {
			case <-ctx.Done():
				return
			case inbound <- func() { handle(payload) }:
			}
		}
	}()
}

// subscribe to all engine topics.
func (s *Service) subscribe(ctx context.Context, inbound chan<- func()) {
	forward(ctx, s.portal, portal.TopicLevelLoaded, inbound, s.handleLevelLoaded)
	forward(ctx, s.portal, portal.TopicPlayerConnected, inbound, s.handlePlayerConnected)
	forward(ctx, s.portal, portal.TopicPlayerDisconnected, inbound, s.handlePlayerDisconnected)
	forward(ctx, s.portal, portal.TopicPlayerConnState, inbound, s.handlePlayerConnState)
	forward(ctx, s.portal, portal.TopicPlayerCommand, inbound, s.handlePlayerCommand)
	forward(ctx, s.portal, portal.TopicPlayerKilled, inbound, s.handlePlayerKilled)
	forward(ctx, s.portal, portal.TopicDamage, inbound, s.handleDamage)
}

// loadLevel replaces the current level. Connected players are carried over
// into the first arena of the new level and keep their proposal quota. The
// proposal cooldown starts over as frames are counted per level.
func (s *Service) loadLevel(mapName string, arenas []event.ArenaDeclaration) error {
	l, err := level.New(s.host, level.Options{
		Map:      mapName,
		Arenas:   arenas,
		Config:   s.config.Level,
		Catalog:  s.catalog,
		Observer: level.ObserverFunc(s.observe),
		Logger:   s.logger,
	})
	if err != nil {
		return errors.Wrap(err, "new level", nil)
	}
	if s.level != nil {
		for _, old := range s.level.Players() {
			p := l.Connect(old.ID, old.Name, old.Privileged)
			p.Proposals = old.Proposals
		}
	}
	s.level = l
	s.logger.Info("level loaded", zap.String("map", mapName), zap.Int("arenas", len(l.Arenas())))
	s.publishSnapshot()
	return nil
}

func (s *Service) handleLevelLoaded(e event.LevelLoadedEvent) {
	err := s.loadLevel(e.Map, e.Arenas)
	if err != nil {
		errors.Log(s.logger, errors.Wrap(err, "load level", errors.Details{"map": e.Map}))
	}
}

func (s *Service) handlePlayerConnected(e event.PlayerConnectedEvent) {
	s.level.Connect(e.PlayerID, e.Name, e.Privileged)
}

func (s *Service) handlePlayerDisconnected(e event.PlayerDisconnectedEvent) {
	errors.Log(s.logger, s.level.Disconnect(e.PlayerID))
}

func (s *Service) handlePlayerConnState(e event.PlayerConnStateEvent) {
	errors.Log(s.logger, s.level.SetConnState(e.PlayerID, e.State))
}

func (s *Service) handlePlayerCommand(e event.PlayerCommandEvent) {
	errors.Log(s.logger, s.level.Command(e.PlayerID, e.Line))
}

func (s *Service) handlePlayerKilled(e event.PlayerKilledEvent) {
	errors.Log(s.logger, s.level.PlayerKilled(e.PlayerID))
}

func (s *Service) handleDamage(e event.DamageEvent) {
	errors.Log(s.logger, s.level.RecordDamage(e.AttackerID, e.TargetID, e.Amount))
}

// observe publishes arena events and records finished matches.
func (s *Service) observe(e event.Envelope) {
	s.portal.Publish(s.host.ctx, portal.EventTopic(e.Type), e.Payload)
	if s.feed != nil {
		s.feed.Broadcast(e)
	}
	if matchEnded, ok := e.Payload.(event.MatchEndedEvent); ok && s.recorder != nil {
		result := store.MatchResult{
			ID:     uuid.New(),
			Map:    s.level.Map(),
			Arena:  matchEnded.Arena,
			Winner: matchEnded.Winner,
			Points: matchEnded.Points,
			Ended:  s.clock.Now(),
		}
		go s.recordMatch(s.host.ctx, result)
	}
}

func (s *Service) recordMatch(ctx context.Context, result store.MatchResult) {
	timeout, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()
	_, err := s.recorder.RecordMatchResult(timeout, result)
	if err != nil {
		errors.Log(s.logger, errors.Wrap(err, "record match result", errors.Details{"arena": result.Arena}))
	}
}

// publishSnapshot takes a snapshot of the level and publishes it.
func (s *Service) publishSnapshot() {
	snapshot := s.level.Snapshot()
	snapshot.Time = s.clock.Now()
	s.lastSnapshotMutex.Lock()
	s.lastSnapshot = snapshot
	s.hasSnapshot = true
	s.lastSnapshotMutex.Unlock()
	s.portal.Publish(s.host.ctx, portal.TopicSnapshot, snapshot)
	if s.feed != nil {
		s.feed.Broadcast(event.Envelope{
			Type:    event.TypeSnapshot,
			Payload: snapshot,
		})
	}
}

// DebugStats returns fields describing the latest snapshot.
func (s *Service) DebugStats() []zap.Field {
	snapshot, ok := s.Snapshot()
	if !ok {
		return []zap.Field{zap.Bool("level_loaded", false)}
	}
	states := make(map[string]int)
	for _, a := range snapshot.Arenas {
		states[a.State]++
	}
	return []zap.Field{
		zap.Bool("level_loaded", true),
		zap.String("map", snapshot.Map),
		zap.Uint64("frame", snapshot.Frame),
		zap.Int("players", snapshot.Players),
		zap.Any("arena_states", states),
	}
}

// Snapshot returns the latest level snapshot. The second return value is false
// if no level was loaded yet.
func (s *Service) Snapshot() (event.LevelSnapshot, bool) {
	s.lastSnapshotMutex.RLock()
	defer s.lastSnapshotMutex.RUnlock()
	return s.lastSnapshot, s.hasSnapshot
}
