package http

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleListMods(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	mods, err := s.store.ListModsByVehicle(r.Context(), vehicleID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]modResponse, 0, len(mods))
	for _, m := range mods {
		resp = append(resp, toModResponse(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateMod(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req modRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	m, err := req.toMod(vehicleID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.records.CreateMod(r.Context(), m)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toModResponse(created))
}

func (s *Server) handleGetMod(w http.ResponseWriter, r *http.Request) {
	vehicleID, mid, err := pathIDs(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	m, err := s.store.GetMod(r.Context(), vehicleID, mid)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toModResponse(m))
}

func (s *Server) handleUpdateMod(w http.ResponseWriter, r *http.Request) {
	vehicleID, mid, err := pathIDs(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req modRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	p, err := req.toPatch()
	if err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := s.records.UpdateMod(r.Context(), vehicleID, mid, p)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toModResponse(updated))
}

func (s *Server) handleDeleteMod(w http.ResponseWriter, r *http.Request) {
	vehicleID, mid, err := pathIDs(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.records.DeleteMod(r.Context(), vehicleID, mid); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
