package app

import (
	"context"
	"fmt"
	"github.com/jonboulle/clockwork"
	"github.com/lefinal/arena-server/arena"
	"github.com/lefinal/arena-server/arenasvc"
	"github.com/lefinal/arena-server/catalog"
	"github.com/lefinal/arena-server/debugstats"
	"github.com/lefinal/arena-server/errors"
	"github.com/lefinal/arena-server/event"
	"github.com/lefinal/arena-server/level"
	"github.com/lefinal/arena-server/logging"
	"github.com/lefinal/arena-server/logpublishsvc"
	"github.com/lefinal/arena-server/portal"
	"github.com/lefinal/arena-server/service"
	"github.com/lefinal/arena-server/store"
	"github.com/lefinal/arena-server/web_server"
	"github.com/lefinal/arena-server/ws"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"time"
)

type services map[string]service.Service

// hubService runs a ws.Hub as service.Service.
type hubService struct {
	hub *ws.Hub
}

func (s hubService) Run(ctx context.Context) error {
	s.hub.Run(ctx)
	return nil
}

// portalService opens a portal.Base as service.Service.
type portalService struct {
	base portal.Base
}

func (s portalService) Run(ctx context.Context) error {
	return s.base.Open(ctx)
}

// levelConfig builds the level.Config from the app config.
func levelConfig(appConfig Config, rules arena.Rules) level.Config {
	return level.Config{
		Arena: appConfig.Arena,
		Vote:  appConfig.Vote.voteConfig(),
		Rules: rules,
	}
}

// arenaServiceConfig builds the arenasvc.Config from the app config.
func arenaServiceConfig(appConfig Config, rules arena.Rules) arenasvc.Config {
	config := arenasvc.Config{
		Level:      levelConfig(appConfig, rules),
		InitialMap: defaultInitialMap,
	}
	if appConfig.InitialMap.Valid {
		config.InitialMap = appConfig.InitialMap.String
	}
	if appConfig.SnapshotIntervalMS.Valid {
		config.SnapshotInterval = time.Duration(appConfig.SnapshotIntervalMS.Int) * time.Millisecond
	}
	return config
}

// createServices creates all services. The mall and log entries are optional.
func createServices(ctx context.Context, appConfig Config, rules arena.Rules, cat *catalog.Catalog,
	mall *store.Mall, logEntries <-chan logging.LogEntry) (services, error) {
	services := make(services)
	// Portal.
	portalBase, err := portal.NewBase(logging.PortalLogger, portal.Config{
		MQTTAddr: appConfig.MQTTAddr,
		ClientID: appConfig.MQTTClientID.String,
	})
	if err != nil {
		return nil, errors.Wrap(err, "new portal base", nil)
	}
	services["portal"] = portalService{base: portalBase}
	// Log publishing service.
	if logEntries != nil {
		services["log-publish"] = logpublishsvc.New(logging.AppLogger.Named("log-publish"),
			portalBase.NewPortal("log-publish"), clockwork.NewRealClock(), logEntries)
	}
	// Arena service and live feed. The hub welcomes clients with the latest
	// snapshot of the arena service.
	var arenaService *arenasvc.Service
	hub := ws.NewHub(logging.WSLogger, func() (event.Envelope, bool) {
		snapshot, ok := arenaService.Snapshot()
		return event.Envelope{Type: event.TypeSnapshot, Payload: snapshot}, ok
	})
	services["ws-hub"] = hubService{hub: hub}
	opts := arenasvc.Options{Feed: hub}
	if mall != nil {
		opts.Recorder = mall
	}
	arenaService = arenasvc.New(logging.LevelLogger, portalBase.NewPortal("arena"), clockwork.NewRealClock(), cat,
		arenaServiceConfig(appConfig, rules), opts)
	services["arena"] = arenaService
	// Debug stats service.
	s, err := debugstats.NewService(logging.AppLogger.Named("debug-stats"), clockwork.NewRealClock(), debugstats.Config{
		IsEnabled:    appConfig.Log.SystemDebugStatsInterval.Valid,
		Interval:     time.Duration(appConfig.Log.SystemDebugStatsInterval.Int) * time.Minute,
		IncludeStack: appConfig.Log.SystemDebugStatsStack,
	}, arenaService)
	if err != nil {
		return nil, errors.Wrap(err, "new debug stats service", nil)
	}
	services["debug-stats"] = s
	// Web server.
	webServer, err := web_server.NewWebServer(logging.WebServerLogger, web_server.Config{
		ServeAddr:    appConfig.WebServerAddr,
		WriteTimeout: web_server.DefaultWriteTimeout,
		ReadTimeout:  web_server.DefaultReadTimeout,
	})
	if err != nil {
		return nil, errors.Wrap(err, "new web server", nil)
	}
	routes := web_server.Routes{
		Hub:       hub,
		Snapshots: arenaService,
		Catalog:   cat,
	}
	if mall != nil {
		routes.Matches = mall
	}
	webServer.PopulateRoutes(ctx, routes)
	services["web-server"] = webServer
	return services, nil
}

func (s services) run(ctx context.Context, logger *zap.Logger) error {
	wg, lifetime := errgroup.WithContext(ctx)
	// Run each.
	for name, serviceToRun := range s {
		// Copy values.
		name, serviceToRun := name, serviceToRun
		wg.Go(func() error {
			logger.Debug(fmt.Sprintf("service %s up", name))
			defer logger.Debug(fmt.Sprintf("service %s down", name))
			if err := serviceToRun.Run(lifetime); err != nil {
				return errors.Wrap(err, "run service", errors.Details{"service_name": name})
			}
			return nil
		})
	}
	return wg.Wait()
}
