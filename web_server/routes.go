package web_server

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/gorilla/mux"
	"github.com/lefinal/arena-server/errors"
	"github.com/lefinal/arena-server/event"
	"github.com/lefinal/arena-server/store"
	"github.com/lefinal/arena-server/ws"
	"net/http"
	"strconv"
)

// defaultMatchLimit is the amount of match results returned if no limit is
// requested.
const defaultMatchLimit = 20

// maxMatchLimit is the maximum amount of match results per request.
const maxMatchLimit = 100

// SnapshotProvider provides the latest level snapshot.
type SnapshotProvider interface {
	Snapshot() (event.LevelSnapshot, bool)
}

// MatchHistory provides results of finished matches.
type MatchHistory interface {
	MatchResults(ctx context.Context, limit int) ([]store.MatchResult, error)
}

// CatalogProvider provides the maps and presets that can be voted for.
type CatalogProvider interface {
	Maps() []string
	PresetNames() []string
}

// Routes are the dependencies for PopulateRoutes. Hub and Snapshots are
// required.
type Routes struct {
	Hub       *ws.Hub
	Snapshots SnapshotProvider
	// Matches is optional as the database is.
	Matches MatchHistory
	Catalog CatalogProvider
}

// PopulateRoutes populates the WebServer with the routes.
func (server *WebServer) PopulateRoutes(wsCtx context.Context, routes Routes) {
	server.router.HandleFunc("/ws", ws.HandleWS(wsCtx, routes.Hub))
	apiRouter := server.router.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(loggingMiddleware(server.logger))
	apiRouter.HandleFunc("/arenas", server.handleGetArenas(routes.Snapshots)).Methods(http.MethodGet)
	apiRouter.HandleFunc("/arenas/{number:[0-9]+}", server.handleGetArena(routes.Snapshots)).Methods(http.MethodGet)
	apiRouter.HandleFunc("/matches", server.handleGetMatches(routes.Matches)).Methods(http.MethodGet)
	apiRouter.HandleFunc("/catalog", server.handleGetCatalog(routes.Catalog)).Methods(http.MethodGet)
}

// statusFromError maps the error code to the HTTP status.
func statusFromError(err error) int {
	e, _ := errors.Cast(err)
	switch e.Code {
	case errors.ErrBadRequest:
		return http.StatusBadRequest
	case errors.ErrForbidden:
		return http.StatusForbidden
	case errors.ErrNotFound:
		return http.StatusNotFound
	case errors.ErrAborted:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (server *WebServer) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(payload)
	if err != nil {
		errors.Log(server.logger, errors.Error{
			Code:    errors.ErrCommunication,
			Kind:    errors.KindEncodeJSON,
			Err:     err,
			Message: "write response",
		})
	}
}

func (server *WebServer) respondErr(w http.ResponseWriter, err error) {
	errors.Log(server.logger, err)
	server.respondJSON(w, statusFromError(err), event.ErrorEventPayloadFromError(err))
}

func noLevelError() error {
	return errors.Error{
		Code:    errors.ErrAborted,
		Message: "no level loaded yet",
	}
}

func (server *WebServer) handleGetArenas(snapshots SnapshotProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot, ok := snapshots.Snapshot()
		if !ok {
			server.respondErr(w, noLevelError())
			return
		}
		server.respondJSON(w, http.StatusOK, snapshot)
	}
}

func (server *WebServer) handleGetArena(snapshots SnapshotProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		number, err := strconv.Atoi(mux.Vars(r)["number"])
		if err != nil {
			server.respondErr(w, errors.NewBadRequestError(errors.KindInvalidArgument, "invalid arena number", nil))
			return
		}
		snapshot, ok := snapshots.Snapshot()
		if !ok {
			server.respondErr(w, noLevelError())
			return
		}
		for _, a := range snapshot.Arenas {
			if a.Number == number {
				server.respondJSON(w, http.StatusOK, a)
				return
			}
		}
		server.respondErr(w, errors.Error{
			Code:    errors.ErrNotFound,
			Kind:    errors.KindArenaNotFound,
			Message: fmt.Sprintf("there is no arena %d", number),
			Details: errors.Details{"arena": number},
		})
	}
}

func (server *WebServer) handleGetMatches(matches MatchHistory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if matches == nil {
			server.respondErr(w, errors.NewResourceNotFoundError("match history is disabled", nil))
			return
		}
		limit := defaultMatchLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			var err error
			limit, err = strconv.Atoi(raw)
			if err != nil || limit < 1 || limit > maxMatchLimit {
				server.respondErr(w, errors.NewBadRequestError(errors.KindInvalidArgument,
					fmt.Sprintf("limit must be between 1 and %d", maxMatchLimit), errors.Details{"limit": raw}))
				return
			}
		}
		results, err := matches.MatchResults(r.Context(), limit)
		if err != nil {
			server.respondErr(w, errors.Wrap(err, "match results", nil))
			return
		}
		server.respondJSON(w, http.StatusOK, results)
	}
}

// catalogResponse is the response for the catalog route.
type catalogResponse struct {
	Maps    []string `json:"maps"`
	Presets []string `json:"presets"`
}

func (server *WebServer) handleGetCatalog(catalog CatalogProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := catalogResponse{Maps: []string{}, Presets: []string{}}
		if catalog != nil {
			res.Maps = catalog.Maps()
			res.Presets = catalog.PresetNames()
		}
		server.respondJSON(w, http.StatusOK, res)
	}
}
