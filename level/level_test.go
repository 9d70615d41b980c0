package level

import (
	"github.com/gobuffalo/nulls"
	"github.com/google/uuid"
	"github.com/lefinal/arena-server/arena"
	"github.com/lefinal/arena-server/errors"
	"github.com/lefinal/arena-server/event"
	"github.com/lefinal/arena-server/vote"
	"github.com/stretchr/testify/suite"
	"testing"
)

type hostStub struct {
	*arena.MockHost
	kicked  []string
	muted   map[string]bool
	mapName string
}

func newHostStub() *hostStub {
	return &hostStub{
		MockHost: arena.NewMockHost(),
		muted:    make(map[string]bool),
	}
}

func (h *hostStub) Kick(p *arena.Player, _ string) {
	h.kicked = append(h.kicked, p.Name)
}

func (h *hostStub) Mute(p *arena.Player, muted bool) {
	h.muted[p.Name] = muted
}

func (h *hostStub) ChangeMap(name string) {
	h.mapName = name
}

type catalogStub struct{}

func (catalogStub) HasMap(name string) bool {
	return name == "q2dm1"
}

func (catalogStub) Preset(string) (arena.Rules, bool) {
	return arena.Rules{}, false
}

type LevelSuite struct {
	suite.Suite
	host   *hostStub
	events []event.Envelope
	l      *Level
}

func (suite *LevelSuite) SetupTest() {
	suite.host = newHostStub()
	suite.events = nil
	var err error
	suite.l, err = New(suite.host, Options{
		Map: "arena1",
		Arenas: []event.ArenaDeclaration{
			{Number: 3, Name: nulls.NewString("Pit")},
			{Number: 1},
			{Number: 2, Teams: nulls.NewInt(4)},
		},
		Config:  DefaultConfig(),
		Catalog: catalogStub{},
		Observer: ObserverFunc(func(e event.Envelope) {
			suite.events = append(suite.events, e)
		}),
	})
	suite.Require().NoError(err)
}

func (suite *LevelSuite) connect(name string) *arena.Player {
	p := suite.l.Connect(uuid.New(), name, false)
	p.Conn = arena.ConnInPlay
	return p
}

func (suite *LevelSuite) command(p *arena.Player, line string) {
	err := suite.l.Command(p.ID, line)
	suite.Require().Nilf(err, "command %q should not fail but got: %s", line, errors.Prettify(err))
}

func (suite *LevelSuite) eventsOfType(t event.Type) []event.Envelope {
	found := make([]event.Envelope, 0)
	for _, e := range suite.events {
		if e.Type == t {
			found = append(found, e)
		}
	}
	return found
}

func (suite *LevelSuite) TestArenasSorted() {
	arenas := suite.l.Arenas()
	suite.Require().Len(arenas, 3)
	for i, a := range arenas {
		suite.Equal(i+1, a.Number)
	}
	suite.Equal("Pit", arenas[2].Name)
	suite.Len(arenas[1].Teams(), 4)
	suite.Len(arenas[0].Teams(), 2)
}

func (suite *LevelSuite) TestSyntheticArena() {
	l, err := New(suite.host, Options{Map: "q2dm1"})
	suite.Require().NoError(err)
	suite.Require().Len(l.Arenas(), 1)
	suite.Equal(1, l.Arenas()[0].Number)
}

func (suite *LevelSuite) TestInvalidDeclarations() {
	_, err := New(suite.host, Options{Arenas: []event.ArenaDeclaration{{Number: 1}, {Number: 1}}})
	suite.Error(err, "duplicate")
	_, err = New(suite.host, Options{Arenas: []event.ArenaDeclaration{{Number: 0}}})
	suite.Error(err, "zero")
	declarations := make([]event.ArenaDeclaration, 0)
	for i := 1; i <= arena.MaxArenas+1; i++ {
		declarations = append(declarations, event.ArenaDeclaration{Number: i})
	}
	_, err = New(suite.host, Options{Arenas: declarations})
	suite.Error(err, "too many")
}

func (suite *LevelSuite) TestConnectPlacesInFirstArena() {
	p := suite.connect("alpha")
	suite.Equal(1, p.Arena.Number)
	suite.Nil(p.Team)
	again := suite.l.Connect(p.ID, "alpha2", true)
	suite.Equal(p, again, "should keep session")
	suite.Equal("alpha2", p.Name)
	suite.Len(suite.l.Arenas()[0].Players(), 1)
}

func (suite *LevelSuite) TestMatchThroughCommands() {
	p1 := suite.connect("alpha")
	p2 := suite.connect("bravo")
	suite.command(p1, "team 1")
	suite.command(p2, "TEAM 2")
	suite.command(p1, "ready")
	suite.command(p2, "ready on")
	a := suite.l.Arenas()[0]
	suite.Equal(arena.StateCountdown, a.State())
	for i := 0; i < 200 && a.State() != arena.StatePlay; i++ {
		suite.l.Tick()
	}
	suite.Require().Equal(arena.StatePlay, a.State())
	suite.Require().NoError(suite.l.PlayerKilled(p2.ID))
	for i := 0; i < 30; i++ {
		suite.l.Tick()
	}
	suite.Equal(2, a.Round())
	suite.Len(suite.eventsOfType(event.TypeRoundEnded), 1)
	suite.NotEmpty(suite.eventsOfType(event.TypeArenaState))
}

func (suite *LevelSuite) TestCommandErrorsArePrinted() {
	p := suite.connect("alpha")
	err := suite.l.Command(p.ID, "dance")
	suite.True(errors.Is(err, errors.KindUnknownCommand))
	suite.True(suite.host.PrintedTo("alpha", "unknown command"))
	err = suite.l.Command(p.ID, "team 9")
	suite.Error(err)
	suite.True(suite.host.PrintedTo("alpha", "team must be between 1 and 2"))
	err = suite.l.Command(p.ID, "ready")
	suite.True(errors.Is(err, errors.KindNotOnTeam))
	err = suite.l.Command(uuid.New(), "ready")
	suite.True(errors.Is(err, errors.KindPlayerNotFound))
}

func (suite *LevelSuite) TestArenaCommand() {
	p := suite.connect("alpha")
	suite.command(p, "team 1")
	suite.command(p, "arena 3")
	suite.Equal(3, p.Arena.Number)
	suite.Nil(p.Team)
	suite.Equal(0, suite.l.Arenas()[0].Teams()[0].Count())
	err := suite.l.Command(p.ID, "arena 7")
	suite.True(errors.Is(err, errors.KindArenaNotFound))
	err = suite.l.Command(p.ID, "arena 3")
	suite.Error(err)
}

func (suite *LevelSuite) TestCaptainCommands() {
	captain := suite.connect("captain")
	suite.connect("zed")
	suite.command(captain, "team 1")
	suite.command(captain, "lockteam")
	suite.True(captain.Team.Locked())
	suite.command(captain, "pick z*")
	suite.Equal(2, captain.Team.Count())
	suite.command(captain, "teamskin male/grunt")
	suite.Equal("male/grunt", suite.host.Skins["zed"])
	suite.command(captain, "remove zed")
	suite.Equal(1, captain.Team.Count())
	suite.command(captain, "forceready")
	suite.True(captain.Ready)
}

func (suite *LevelSuite) TestArenaVote() {
	p1 := suite.connect("alpha")
	p2 := suite.connect("bravo")
	p3 := suite.connect("charlie")
	suite.command(p1, "team 1")
	suite.command(p2, "team 2")
	suite.command(p3, "team 2")
	suite.command(p1, "vote health 50")
	suite.command(p2, "yes")
	suite.Equal(50, suite.l.Arenas()[0].Rules().Health)
	resolved := suite.eventsOfType(event.TypeVoteResolved)
	suite.Require().Len(resolved, 1)
	payload := resolved[0].Payload.(event.VoteResolvedEvent)
	suite.Equal("passed", payload.Outcome)
	suite.Equal(nulls.NewInt(1), payload.Arena)
}

func (suite *LevelSuite) TestBallotRouting() {
	p1 := suite.connect("alpha")
	p2 := suite.connect("bravo")
	p3 := suite.connect("charlie")
	suite.command(p1, "team 1")
	suite.command(p2, "team 2")
	suite.command(p3, "team 2")
	suite.command(p1, "vote map q2dm1")
	suite.command(p2, "vote armor 0")
	suite.command(p3, "no")
	suite.Equal(1, p3.ArenaBallot.Index, "should vote in arena first")
	suite.False(p3.ArenaBallot.Accept)
	suite.Equal(0, p3.GlobalBallot.Index)
	suite.True(suite.l.GlobalBooth().InFlight())
	suite.command(p3, "no")
	suite.True(suite.l.GlobalBooth().InFlight(), "arena vote still in flight")
}

func (suite *LevelSuite) TestGlobalKick() {
	p1 := suite.connect("alpha")
	p2 := suite.connect("bravo")
	p3 := suite.connect("charlie")
	suite.command(p1, "team 1")
	suite.command(p2, "team 2")
	suite.command(p3, "team 2")
	suite.command(p1, "vote kick bravo")
	suite.command(p3, "yes")
	suite.Equal([]string{"bravo"}, suite.host.kicked)
	_, err := suite.l.Player(p2.ID)
	suite.Error(err, "kicked player should be gone")
	suite.Equal(1, suite.l.Arenas()[0].Teams()[1].Count())
}

func (suite *LevelSuite) TestDisconnectAbortsVote() {
	p1 := suite.connect("alpha")
	p2 := suite.connect("bravo")
	p3 := suite.connect("charlie")
	suite.command(p1, "team 1")
	suite.command(p2, "team 2")
	suite.command(p3, "team 2")
	suite.command(p1, "vote rounds 3")
	suite.Require().NoError(suite.l.Disconnect(p1.ID))
	suite.l.Tick()
	resolved := suite.eventsOfType(event.TypeVoteResolved)
	suite.Require().Len(resolved, 1)
	suite.Equal("aborted", resolved[0].Payload.(event.VoteResolvedEvent).Outcome)
	suite.Equal(7, suite.l.Arenas()[0].Rules().RoundLimit)
}

func (suite *LevelSuite) TestVoteWithoutArgsPrintsUsage() {
	p := suite.connect("alpha")
	suite.command(p, "vote")
	suite.True(suite.host.PrintedTo("alpha", "usage: vote"))
	err := suite.l.Command(p.ID, "vote gravity 200")
	suite.Error(err)
	err = suite.l.Command(p.ID, "yes")
	suite.True(errors.Is(err, errors.KindNoVote))
}

func (suite *LevelSuite) TestTimeoutCommands() {
	p1 := suite.connect("alpha")
	p2 := suite.connect("bravo")
	suite.command(p1, "team 1")
	suite.command(p2, "team 2")
	suite.command(p1, "ready")
	suite.command(p2, "ready")
	a := suite.l.Arenas()[0]
	for i := 0; i < 200 && a.State() != arena.StatePlay; i++ {
		suite.l.Tick()
	}
	suite.command(p1, "timeout")
	suite.Equal(arena.StateTimeout, a.State())
	suite.command(p1, "timein")
	suite.Equal(a.Config().TimeinSeconds, a.TimeoutClock().Value())
}

func (suite *LevelSuite) TestDamageAndConnState() {
	p1 := suite.connect("alpha")
	p2 := suite.connect("bravo")
	suite.command(p1, "team 1")
	suite.command(p2, "team 2")
	suite.Require().NoError(suite.l.RecordDamage(p1.ID, p2.ID, 25))
	suite.Equal(25, p1.Team.DamageDealt)
	suite.Require().NoError(suite.l.SetConnState(p1.ID, "spectator"))
	suite.Equal(arena.ConnSpectator, p1.Conn)
	suite.Error(suite.l.SetConnState(p1.ID, "dancing"))
}

func (suite *LevelSuite) TestSnapshot() {
	p1 := suite.connect("alpha")
	suite.connect("bravo")
	suite.command(p1, "team 1")
	suite.command(p1, "vote health 50")
	snapshot := suite.l.Snapshot()
	suite.Equal("arena1", snapshot.Map)
	suite.Equal(2, snapshot.Players)
	suite.Require().Len(snapshot.Arenas, 3)
	first := snapshot.Arenas[0]
	suite.Equal("warmup", first.State)
	suite.Equal([]string{"alpha"}, first.Teams[0].Players)
	suite.Equal(nulls.NewString("alpha"), first.Teams[0].Captain)
	suite.Equal([]string{"bravo"}, first.Spectators)
	suite.False(first.Vote.Valid, "single voter should have passed instantly")
	suite.Equal(50, suite.l.Arenas()[0].Rules().Health)
}

func (suite *LevelSuite) TestMuteEffect() {
	p := suite.connect("alpha")
	suite.l.Mute(p, true)
	suite.True(p.Muted)
	suite.True(suite.host.muted["alpha"])
	suite.l.ChangeMap("q2dm1")
	suite.Equal("q2dm1", suite.host.mapName)
}

func TestLevel(t *testing.T) {
	suite.Run(t, new(LevelSuite))
}

func TestKindsRouteToScopes(t *testing.T) {
	for _, k := range vote.Kinds() {
		want := vote.ScopeArena
		if k == vote.KindKick || k == vote.KindMute || k == vote.KindMap {
			want = vote.ScopeGlobal
		}
		if k.Scope() != want {
			t.Errorf("kind %s has scope %s, want %s", k, k.Scope(), want)
		}
	}
}
