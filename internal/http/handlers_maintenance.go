package http

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleListMaintenance(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	records, err := s.store.ListMaintenanceByVehicle(r.Context(), vehicleID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]maintenanceResponse, 0, len(records))
	for _, m := range records {
		resp = append(resp, toMaintenanceResponse(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateMaintenance(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req maintenanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	m, err := req.toMaintenance(vehicleID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.records.CreateMaintenance(r.Context(), m)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toMaintenanceResponse(created))
}

func (s *Server) handleGetMaintenance(w http.ResponseWriter, r *http.Request) {
	vehicleID, mid, err := pathIDs(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	m, err := s.store.GetMaintenance(r.Context(), vehicleID, mid)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toMaintenanceResponse(m))
}

func (s *Server) handleUpdateMaintenance(w http.ResponseWriter, r *http.Request) {
	vehicleID, mid, err := pathIDs(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req maintenanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	p, err := req.toPatch()
	if err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := s.records.UpdateMaintenance(r.Context(), vehicleID, mid, p)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toMaintenanceResponse(updated))
}

func (s *Server) handleDeleteMaintenance(w http.ResponseWriter, r *http.Request) {
	vehicleID, mid, err := pathIDs(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.records.DeleteMaintenance(r.Context(), vehicleID, mid); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	vehicleID, mid, err := pathIDs(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if _, err := s.store.GetMaintenance(r.Context(), vehicleID, mid); err != nil {
		writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeErrorMessage(w, http.StatusUnprocessableEntity, "missing file field")
		return
	}
	defer file.Close()

	path, err := s.uploads.SaveReceipt(mid, file, header.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := s.records.SetMaintenanceReceipt(r.Context(), vehicleID, mid, path)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toMaintenanceResponse(updated))
}

// pathIDs parses the vehicle id and nested record id segments.
func pathIDs(r *http.Request) (vehicleID, recordID int64, err error) {
	vehicleID, err = pathID(r, "id")
	if err != nil {
		return 0, 0, err
	}
	recordID, err = pathID(r, "mid")
	if err != nil {
		return 0, 0, err
	}
	return vehicleID, recordID, nil
}
