package metaserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/sqlcomplete/internal/metadata"
	"github.com/leapstack-labs/sqlcomplete/internal/metadata/rest"
	"github.com/leapstack-labs/sqlcomplete/internal/metadata/sqlsource"
	"github.com/leapstack-labs/sqlcomplete/pkg/core"
)

func (s *Server) routes(router chi.Router) {
	router.Route(s.prefix, func(r chi.Router) {
		r.Get("/"+rest.PathConfigs, s.handleConfigs)
		r.Get("/"+rest.PathInstances, s.handleInstances)
		r.Get("/"+rest.PathCatalogNames, s.handleCatalogNames)
		r.Get("/"+rest.PathSchemaNames, s.handleSchemaNames)
		r.Get("/"+rest.PathTableViewNames, s.handleTableViewNames)
		r.Get("/"+rest.PathTableColumns, s.handleTableColumns)
		r.Post("/"+rest.PathTablesColumns, s.handleTablesColumns)
	})
}

// badRequest is an error caused by the request itself.
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

func (s *Server) writeData(w http.ResponseWriter, r *http.Request, data any) {
	s.writeEnvelope(w, r, http.StatusOK, rest.Envelope{Data: data, Success: true})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var br badRequest
	var unknown *sqlsource.UnknownFlavorError
	switch {
	case errors.As(err, &br), errors.As(err, &unknown), errors.Is(err, metadata.ErrUnsupportedLevel):
		status = http.StatusBadRequest
	default:
		s.logger.Error("metadata request failed", "path", r.URL.Path, "request_id", RequestID(r.Context()), "error", err)
	}
	s.writeEnvelope(w, r, status, rest.Envelope{Success: false, Message: err.Error()})
}

func (s *Server) writeEnvelope(w http.ResponseWriter, r *http.Request, status int, env rest.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		s.logger.Warn("failed to write response", "request_id", RequestID(r.Context()), "error", err)
	}
}

func requiredParam(r *http.Request, names ...string) (string, error) {
	for _, name := range names {
		if v := r.URL.Query().Get(name); v != "" {
			return v, nil
		}
	}
	return "", badRequest{fmt.Sprintf("missing required parameter %q", names[0])}
}

func instanceID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, badRequest{fmt.Sprintf("invalid instance id %q", raw)}
	}
	return id, nil
}

// typeAndID extracts the database type and the instance id common to the
// per-instance routes.
func typeAndID(r *http.Request, typeParams ...string) (string, int64, error) {
	if len(typeParams) == 0 {
		typeParams = []string{"type"}
	}
	dbType, err := requiredParam(r, typeParams...)
	if err != nil {
		return "", 0, err
	}
	id, err := instanceID(r)
	if err != nil {
		return "", 0, err
	}
	return strings.ToUpper(dbType), id, nil
}

func (s *Server) handleConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.transport.ListDatabaseConfigs(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeData(w, r, configs)
}

func (s *Server) handleInstances(w http.ResponseWriter, r *http.Request) {
	dbType, err := requiredParam(r, "type")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	instances, err := s.transport.ListInstances(r.Context(), strings.ToUpper(dbType))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeData(w, r, nonNil(instances))
}

func (s *Server) handleCatalogNames(w http.ResponseWriter, r *http.Request) {
	dbType, id, err := typeAndID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	names, err := s.transport.ListCatalogNames(r.Context(), dbType, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeData(w, r, nonNil(names))
}

func (s *Server) handleSchemaNames(w http.ResponseWriter, r *http.Request) {
	dbType, id, err := typeAndID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	names, err := s.transport.ListSchemaNames(r.Context(), dbType, id, r.URL.Query().Get("catalog"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeData(w, r, nonNil(names))
}

func (s *Server) handleTableViewNames(w http.ResponseWriter, r *http.Request) {
	dbType, id, err := typeAndID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	names, err := s.transport.ListTableAndViewNames(r.Context(), dbType, id, q.Get("catalog"), q.Get("schema"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeData(w, r, nonNil(names))
}

func (s *Server) handleTableColumns(w http.ResponseWriter, r *http.Request) {
	dbType, id, err := typeAndID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	table, err := requiredParam(r, "table")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	coord := core.TableCoordinator{Catalog: q.Get("catalog"), Schema: q.Get("schema"), Table: table}
	cols, err := s.transport.ListTableColumns(r.Context(), dbType, id, coord)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeData(w, r, nonNil(cols))
}

func (s *Server) handleTablesColumns(w http.ResponseWriter, r *http.Request) {
	dbType, id, err := typeAndID(r, "databaseType", "type")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var tables []core.TableCoordinator
	if err := json.NewDecoder(r.Body).Decode(&tables); err != nil {
		s.writeError(w, r, badRequest{fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	for _, t := range tables {
		if t.Table == "" {
			s.writeError(w, r, badRequest{"table coordinate without table name"})
			return
		}
	}
	cols, err := s.transport.ListTablesColumns(r.Context(), dbType, id, tables)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeData(w, r, nonNil(cols))
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
