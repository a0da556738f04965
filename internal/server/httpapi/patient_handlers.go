package httpapi

import (
	"net/http"
	"strconv"

	"github.com/eyedocs/caredesk/internal/common"
	appointmentsrepo "github.com/eyedocs/caredesk/internal/server/repositories/appointments"
	patientsrepo "github.com/eyedocs/caredesk/internal/server/repositories/patients"
)

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, common.ErrorValidation
	}
	return id, nil
}

func queryInt(r *http.Request, name string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return fallback
	}
	return v
}

// patientWriteResponse carries the committed record plus the
// informational sync block.
type patientWriteResponse struct {
	Patient patientView `json:"patient"`
	Sync    syncInfo    `json:"sync"`
}

func (a *API) handlePatientList(w http.ResponseWriter, r *http.Request) {
	filter := patientsrepo.ListFilter{
		Search: r.URL.Query().Get("search"),
		Status: r.URL.Query().Get("status"),
		Limit:  queryInt(r, "limit", 20),
		Offset: queryInt(r, "offset", 0),
	}

	list, total, err := a.patients.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writePage(w, viewPatients(list), total, filter.Limit, filter.Offset)
}

func (a *API) handlePatientCreate(w http.ResponseWriter, r *http.Request) {
	var payload patientPayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, err)
		return
	}
	patient, err := payload.toModel()
	if err != nil {
		writeError(w, err)
		return
	}

	created, err := a.patients.Create(r.Context(), patient)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusCreated, patientWriteResponse{
		Patient: viewPatient(created),
		Sync:    syncInfo{Status: created.SyncStatus, Mode: a.syncMode()},
	})
}

func (a *API) handlePatientGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	patient, err := a.patients.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, viewPatient(patient))
}

func (a *API) handlePatientUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var payload patientPayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, err)
		return
	}
	patient, err := payload.toModel()
	if err != nil {
		writeError(w, err)
		return
	}
	patient.ID = id

	updated, err := a.patients.Update(r.Context(), patient)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, patientWriteResponse{
		Patient: viewPatient(updated),
		Sync:    syncInfo{Status: updated.SyncStatus, Mode: a.syncMode()},
	})
}

func (a *API) handlePatientDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := a.patients.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handlePatientAppointments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	filter := appointmentsrepo.ListFilter{
		PatientID: id,
		Limit:     queryInt(r, "limit", 50),
		Offset:    queryInt(r, "offset", 0),
	}
	list, total, err := a.appointments.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writePage(w, viewAppointments(list), total, filter.Limit, filter.Offset)
}
