package web_server

import (
	"context"
	"encoding/json"
	"github.com/gobuffalo/nulls"
	"github.com/google/uuid"
	"github.com/lefinal/arena-server/errors"
	"github.com/lefinal/arena-server/event"
	"github.com/lefinal/arena-server/store"
	"github.com/lefinal/arena-server/ws"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const timeout = 5 * time.Second

type snapshotProviderStub struct {
	snapshot event.LevelSnapshot
	ok       bool
}

func (s *snapshotProviderStub) Snapshot() (event.LevelSnapshot, bool) {
	return s.snapshot, s.ok
}

type matchHistoryStub struct {
	mock.Mock
}

func (m *matchHistoryStub) MatchResults(ctx context.Context, limit int) ([]store.MatchResult, error) {
	args := m.Called(ctx, limit)
	var results []store.MatchResult
	results, _ = args.Get(0).([]store.MatchResult)
	return results, args.Error(1)
}

type catalogProviderStub struct{}

func (catalogProviderStub) Maps() []string {
	return []string{"q2dm1", "q2dm8"}
}

func (catalogProviderStub) PresetNames() []string {
	return []string{"rail"}
}

// routesSuite tests the API routes.
type routesSuite struct {
	suite.Suite
	ctx       context.Context
	cancel    context.CancelFunc
	snapshots *snapshotProviderStub
	matches   *matchHistoryStub
	server    *WebServer
}

func (suite *routesSuite) SetupTest() {
	suite.ctx, suite.cancel = context.WithTimeout(context.Background(), timeout)
	suite.snapshots = &snapshotProviderStub{
		snapshot: event.LevelSnapshot{
			Map: "q2dm1",
			Arenas: []event.ArenaSnapshot{
				{Number: 1, Name: "arena 1", State: "warmup"},
				{Number: 3, Name: "Pit", State: "play"},
			},
		},
		ok: true,
	}
	suite.matches = &matchHistoryStub{}
	var err error
	suite.server, err = NewWebServer(zap.NewNop(), Config{ServeAddr: DefaultServeAddr})
	suite.Require().NoError(err, "new web server should not fail")
	suite.server.PopulateRoutes(suite.ctx, Routes{
		Hub:       ws.NewHub(zap.NewNop(), nil),
		Snapshots: suite.snapshots,
		Matches:   suite.matches,
		Catalog:   catalogProviderStub{},
	})
}

func (suite *routesSuite) TearDownTest() {
	suite.cancel()
	suite.matches.AssertExpectations(suite.T())
}

func (suite *routesSuite) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil).WithContext(suite.ctx)
	rr := httptest.NewRecorder()
	suite.server.Handler().ServeHTTP(rr, req)
	return rr
}

func (suite *routesSuite) TestArenas() {
	rr := suite.get("/api/v1/arenas")
	suite.Require().Equal(http.StatusOK, rr.Code)
	var snapshot event.LevelSnapshot
	suite.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &snapshot))
	suite.Equal("q2dm1", snapshot.Map)
	suite.Len(snapshot.Arenas, 2)
	suite.NotEmpty(rr.Header().Get("Cache-Control"), "should forbid caching")
}

func (suite *routesSuite) TestArenasWithoutLevel() {
	suite.snapshots.ok = false
	rr := suite.get("/api/v1/arenas")
	suite.Equal(http.StatusServiceUnavailable, rr.Code)
}

func (suite *routesSuite) TestArena() {
	rr := suite.get("/api/v1/arenas/3")
	suite.Require().Equal(http.StatusOK, rr.Code)
	var a event.ArenaSnapshot
	suite.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &a))
	suite.Equal("Pit", a.Name)
}

func (suite *routesSuite) TestArenaNotFound() {
	rr := suite.get("/api/v1/arenas/2")
	suite.Require().Equal(http.StatusNotFound, rr.Code)
	var payload event.ErrorEventPayload
	suite.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &payload))
	suite.Equal(string(errors.KindArenaNotFound), payload.Kind)
}

func (suite *routesSuite) TestArenaInvalidNumber() {
	rr := suite.get("/api/v1/arenas/abc")
	suite.Equal(http.StatusNotFound, rr.Code, "should not match route")
}

func (suite *routesSuite) TestMatches() {
	results := []store.MatchResult{
		{
			ID:     uuid.New(),
			Map:    "q2dm1",
			Arena:  1,
			Winner: nulls.NewString("Red"),
			Points: map[string]int{"Red": 4, "Blue": 2},
		},
	}
	suite.matches.On("MatchResults", mock.Anything, defaultMatchLimit).Return(results, nil).Once()
	rr := suite.get("/api/v1/matches")
	suite.Require().Equal(http.StatusOK, rr.Code)
	var got []store.MatchResult
	suite.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &got))
	suite.Require().Len(got, 1)
	suite.Equal(results[0].ID, got[0].ID)
	suite.Equal(4, got[0].Points["Red"])
}

func (suite *routesSuite) TestMatchesLimit() {
	suite.matches.On("MatchResults", mock.Anything, 5).Return([]store.MatchResult{}, nil).Once()
	rr := suite.get("/api/v1/matches?limit=5")
	suite.Equal(http.StatusOK, rr.Code)
}

func (suite *routesSuite) TestMatchesInvalidLimit() {
	for _, limit := range []string{"0", "abc", "1000"} {
		rr := suite.get("/api/v1/matches?limit=" + limit)
		suite.Equal(http.StatusBadRequest, rr.Code, "limit %s", limit)
	}
}

func (suite *routesSuite) TestMatchesFail() {
	suite.matches.On("MatchResults", mock.Anything, defaultMatchLimit).
		Return(nil, errors.NewInternalError("sad life", nil)).Once()
	rr := suite.get("/api/v1/matches")
	suite.Require().Equal(http.StatusInternalServerError, rr.Code)
	var payload event.ErrorEventPayload
	suite.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &payload))
	suite.Equal("internal server error", payload.Message, "should hide internal details")
}

func (suite *routesSuite) TestCatalog() {
	rr := suite.get("/api/v1/catalog")
	suite.Require().Equal(http.StatusOK, rr.Code)
	var res catalogResponse
	suite.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &res))
	suite.Equal([]string{"q2dm1", "q2dm8"}, res.Maps)
	suite.Equal([]string{"rail"}, res.Presets)
}

func (suite *routesSuite) TestMethodNotAllowed() {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/arenas", nil)
	rr := httptest.NewRecorder()
	suite.server.Handler().ServeHTTP(rr, req)
	suite.Equal(http.StatusMethodNotAllowed, rr.Code)
}

func TestRoutes(t *testing.T) {
	suite.Run(t, new(routesSuite))
}

func TestRoutesWithoutHistory(t *testing.T) {
	server, err := NewWebServer(zap.NewNop(), Config{ServeAddr: DefaultServeAddr})
	if err != nil {
		t.Fatal(err)
	}
	server.PopulateRoutes(context.Background(), Routes{
		Hub:       ws.NewHub(zap.NewNop(), nil),
		Snapshots: &snapshotProviderStub{},
	})
	for path, status := range map[string]int{
		"/api/v1/matches": http.StatusNotFound,
		"/api/v1/catalog": http.StatusOK,
	} {
		rr := httptest.NewRecorder()
		server.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != status {
			t.Errorf("%s: expected status %d but got %d", path, status, rr.Code)
		}
	}
}

func TestNewWebServerWithoutAddr(t *testing.T) {
	_, err := NewWebServer(zap.NewNop(), Config{})
	if !errors.Is(err, errors.KindInvalidConfig) {
		t.Errorf("expected invalid config error but got %v", err)
	}
}

func TestNewWebServerDefaultTimeouts(t *testing.T) {
	server, err := NewWebServer(zap.NewNop(), Config{ServeAddr: DefaultServeAddr, ReadTimeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	if server.config.WriteTimeout != DefaultWriteTimeout {
		t.Errorf("expected default write timeout but got %v", server.config.WriteTimeout)
	}
	if server.httpServer.ReadTimeout != time.Second {
		t.Errorf("expected configured read timeout but got %v", server.httpServer.ReadTimeout)
	}
}

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{err: errors.NewBadRequestError(errors.KindInvalidArgument, "", nil), status: http.StatusBadRequest},
		{err: errors.NewForbiddenError(errors.KindNotCaptain, "", nil), status: http.StatusForbidden},
		{err: errors.NewResourceNotFoundError("", nil), status: http.StatusNotFound},
		{err: errors.NewInternalError("", nil), status: http.StatusInternalServerError},
		{err: errors.Error{Code: errors.ErrAborted}, status: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		if got := statusFromError(tt.err); got != tt.status {
			t.Errorf("%v: expected %d but got %d", tt.err, tt.status, got)
		}
	}
}

func TestLoggingMiddleware(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	handler := loggingMiddleware(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok?limit=2", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))
	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries but got %d", len(entries))
	}
	if entries[0].Level != zap.DebugLevel || entries[0].ContextMap()["query"] != "limit=2" {
		t.Errorf("unexpected entry for successful request: %+v", entries[0])
	}
	if entries[1].Level != zap.WarnLevel || entries[1].ContextMap()["status"] != int64(http.StatusInternalServerError) {
		t.Errorf("unexpected entry for failed request: %+v", entries[1])
	}
}
