package handlers

import (
	"errors"
	"net/http"
	"route-optimizer-service/internal/api/dto"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/platform/logger"
	"route-optimizer-service/internal/platform/obs"
	"route-optimizer-service/internal/ports"
	"route-optimizer-service/internal/services"

	"go.uber.org/zap"
)

// RouteHandler exposes route progress and driver updates.
// Routes and Archive are optional.
type RouteHandler struct {
	Tracker *services.Tracker
	Routes  ports.RouteRepository
	Archive ports.ProgressStore
}

func (h *RouteHandler) List(w http.ResponseWriter, r *http.Request) {
	list := h.Tracker.List()

	res := dto.ListProgressResponse{Routes: make([]dto.ProgressResponse, 0, len(list))}
	for _, p := range list {
		res.Routes = append(res.Routes, dto.FromProgress(p))
	}
	writeJSON(w, r, http.StatusOK, res)
}

// Get returns live progress, falling back to the archive for routes no longer tracked.
// The planned route is attached when a repository is configured.
func (h *RouteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var res dto.ProgressResponse
	p, err := h.Tracker.Get(id)
	switch {
	case err == nil:
		res = dto.FromProgress(p)
	case errors.Is(err, domain.ErrRouteNotFound) && h.Archive != nil:
		archived, aerr := h.Archive.LoadProgress(r.Context(), id)
		if aerr != nil {
			writeDomainError(w, r, "get route", aerr)
			return
		}
		res = dto.FromProgress(archived)
		res.Archived = true
	default:
		writeDomainError(w, r, "get route", err)
		return
	}

	if h.Routes != nil {
		route, err := h.Routes.LoadRoute(r.Context(), id)
		switch {
		case err == nil:
			plan := dto.FromRoute(route)
			res.Plan = &plan
		case !errors.Is(err, domain.ErrRouteNotFound):
			logger.Get().Warn("load planned route failed",
				zap.String("req_id", obs.RequestID(r.Context())),
				zap.String("route_id", id),
				zap.Error(err),
			)
		}
	}

	writeJSON(w, r, http.StatusOK, res)
}

// Delete stops tracking a route. With ?purge=true the archived snapshot is discarded
// as well, including for routes that are only left in the archive.
func (h *RouteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if r.URL.Query().Get("purge") != "true" {
		if err := h.Tracker.Remove(id); err != nil {
			writeDomainError(w, r, "delete route", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	err := h.Tracker.Purge(id)
	if errors.Is(err, domain.ErrRouteNotFound) && h.Archive != nil {
		err = h.purgeArchived(r, id)
	}
	if err != nil {
		writeDomainError(w, r, "purge route", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RouteHandler) purgeArchived(r *http.Request, id string) error {
	if _, err := h.Archive.LoadProgress(r.Context(), id); err != nil {
		return err
	}
	return h.Archive.DeleteProgress(r.Context(), id)
}

func (h *RouteHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	p, err := h.Tracker.Dispatch(r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, "dispatch route", err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.FromProgress(p))
}

func (h *RouteHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req dto.CancelRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.Tracker.Cancel(r.PathValue("id"), req.Reason)
	if err != nil {
		writeDomainError(w, r, "cancel route", err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.FromProgress(p))
}

func (h *RouteHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req dto.LocationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Lat == nil || req.Lon == nil {
		writeError(w, r, http.StatusBadRequest, "lat and lon are required")
		return
	}

	p, err := h.Tracker.UpdateLocation(r.PathValue("id"), domain.Coordinates{Lat: *req.Lat, Lon: *req.Lon})
	if err != nil {
		writeDomainError(w, r, "update location", err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.FromProgress(p))
}

func (h *RouteHandler) UpdateStop(w http.ResponseWriter, r *http.Request) {
	var req dto.StopUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	status, err := domain.ParseStopStatus(req.Status)
	if err != nil {
		writeDomainError(w, r, "update stop", err)
		return
	}

	p, err := h.Tracker.UpdateStop(r.PathValue("id"), r.PathValue("stopID"), status, req.Reason)
	if err != nil {
		writeDomainError(w, r, "update stop", err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.FromProgress(p))
}
