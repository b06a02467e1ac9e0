package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/placemap/internal/dashboard"
	"github.com/sells-group/placemap/internal/layers"
	"github.com/sells-group/placemap/internal/model"
	"github.com/sells-group/placemap/internal/orchestrator"
)

type ctxKey struct{}

// sessionResponse carries a session id and its current state.
type sessionResponse struct {
	ID    string          `json:"id"`
	State dashboard.State `json:"state"`
}

// entityRef names an entity by kind and id.
type entityRef struct {
	Kind model.EntityKind `json:"kind"`
	ID   string           `json:"id"`
}

type tooltipRequest struct {
	entityRef
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type homeZipcodesRequest struct {
	ID string `json:"id"`
}

type placesVisibilityRequest struct {
	Visible bool `json:"visible"`
}

type competitorModeRequest struct {
	Mode dashboard.CompetitorMode `json:"mode"`
}

// viewResponse is the rendered view of a session.
type viewResponse struct {
	State dashboard.State `json:"state"`
	layers.Result
	NoTradeAreaIDs []string `json:"noTradeAreaIds,omitempty"`
	Error          string   `json:"error,omitempty"`
	Notification   string   `json:"notification,omitempty"`
}

// withSession loads the session named in the URL into the request context.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		st, ok := s.sessions.Get(id)
		if !ok {
			writeError(w, eris.Wrapf(errSessionNotFound, "session %s", id))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, st)))
	})
}

func storeFrom(r *http.Request) *dashboard.Store {
	st, _ := r.Context().Value(ctxKey{}).(*dashboard.Store)
	return st
}

func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	id, st := s.sessions.Create()
	writeJSON(w, http.StatusCreated, sessionResponse{ID: id, State: st.State()})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeState(w, r, storeFrom(r).State())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s.sessions.Delete(chi.URLParam(r, "sessionID"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleSelection(w http.ResponseWriter, r *http.Request) {
	var ref entityRef
	if err := decode(w, r, &ref); err != nil {
		writeError(w, err)
		return
	}
	st := storeFrom(r)
	state := st.State()

	// A selected entity may have left the active dataset; deselect it
	// from the stored copy.
	if sp, ok := state.Selection(ref.ID); ok && ref.Kind.Valid() {
		writeState(w, r, st.ToggleSelection(sp.Entity))
		return
	}

	e, err := s.resolve(r.Context(), state, ref)
	if err != nil {
		writeError(w, err)
		return
	}
	writeState(w, r, st.ToggleSelection(e))
}

func (s *Server) handleShowHomeZipcodes(w http.ResponseWriter, r *http.Request) {
	var req homeZipcodesRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	state, err := storeFrom(r).ShowHomeZipcodesFor(req.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeState(w, r, state)
}

func (s *Server) handleCustomerAnalysis(w http.ResponseWriter, r *http.Request) {
	var p dashboard.CustomerAnalysisPatch
	if err := decode(w, r, &p); err != nil {
		writeError(w, err)
		return
	}
	state, err := storeFrom(r).SetCustomerAnalysis(p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeState(w, r, state)
}

func (s *Server) handlePlaceAnalysis(w http.ResponseWriter, r *http.Request) {
	var p dashboard.PlaceAnalysisPatch
	if err := decode(w, r, &p); err != nil {
		writeError(w, err)
		return
	}
	state, err := storeFrom(r).SetPlaceAnalysis(p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeState(w, r, state)
}

func (s *Server) handlePlacesVisibility(w http.ResponseWriter, r *http.Request) {
	var req placesVisibilityRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	writeState(w, r, storeFrom(r).SetPlacesVisible(req.Visible))
}

func (s *Server) handleSetTooltip(w http.ResponseWriter, r *http.Request) {
	var req tooltipRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	st := storeFrom(r)

	e, err := s.resolve(r.Context(), st.State(), req.entityRef)
	if err != nil {
		writeError(w, err)
		return
	}
	writeState(w, r, st.SetTooltip(&dashboard.Tooltip{Entity: e, X: req.X, Y: req.Y}))
}

func (s *Server) handleClearTooltip(w http.ResponseWriter, r *http.Request) {
	writeState(w, r, storeFrom(r).SetTooltip(nil))
}

func (s *Server) handleMapView(w http.ResponseWriter, r *http.Request) {
	var v dashboard.MapView
	if err := decode(w, r, &v); err != nil {
		writeError(w, err)
		return
	}
	state, err := storeFrom(r).SetMapView(v)
	if err != nil {
		writeError(w, err)
		return
	}
	writeState(w, r, state)
}

func (s *Server) handleCompetitorMode(w http.ResponseWriter, r *http.Request) {
	var req competitorModeRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	state, err := storeFrom(r).SetCompetitorMode(req.Mode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeState(w, r, state)
}

// handleView resolves every dataset the session needs and composes its
// layers. Data failures are reported in the body, not as an HTTP error.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	state := storeFrom(r).State()

	snap, err := s.orch.Resolve(r.Context(), orchestrator.RequestFor(state))
	if err != nil {
		writeError(w, err)
		return
	}

	result := layers.Compose(layers.Input{
		State:        state,
		Place:        snap.Place,
		Competitors:  snap.Competitors,
		TradeAreas:   snap.TradeAreas,
		HomeZipcodes: snap.HomeZipcodes,
		Zipcodes:     snap.Zipcodes,
	})
	writeJSON(w, http.StatusOK, viewResponse{
		State:          state,
		Result:         result,
		NoTradeAreaIDs: snap.NoTradeAreaIDs,
		Error:          snap.Error,
		Notification:   snap.Notification,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.orch.Status(orchestrator.RequestFor(storeFrom(r).State())))
}

// resolve turns a client reference into an Entity using the session's
// active competitor dataset.
func (s *Server) resolve(ctx context.Context, state dashboard.State, ref entityRef) (model.Entity, error) {
	if ref.ID == "" || !ref.Kind.Valid() {
		return model.Entity{}, eris.Wrap(dashboard.ErrInvalid, "entity reference needs a kind and an id")
	}
	q := orchestrator.RequestFor(state).Competitors
	return s.orch.ResolveEntity(ctx, q, ref.Kind, ref.ID)
}

func writeState(w http.ResponseWriter, r *http.Request, state dashboard.State) {
	writeJSON(w, http.StatusOK, sessionResponse{ID: chi.URLParam(r, "sessionID"), State: state})
}
