package httpapi

import (
	"net/http"
	"time"

	appointmentsrepo "github.com/eyedocs/caredesk/internal/server/repositories/appointments"
)

func (a *API) handleAppointmentList(w http.ResponseWriter, r *http.Request) {
	filter := appointmentsrepo.ListFilter{
		Status: r.URL.Query().Get("status"),
		Limit:  queryInt(r, "limit", 20),
		Offset: queryInt(r, "offset", 0),
	}
	if raw := r.URL.Query().Get("date"); raw != "" {
		date, err := time.Parse(dateLayout, raw)
		if err == nil {
			filter.Date = date
		}
	}
	if id := queryInt(r, "patientId", 0); id > 0 {
		filter.PatientID = int64(id)
	}

	list, total, err := a.appointments.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writePage(w, viewAppointments(list), total, filter.Limit, filter.Offset)
}

func (a *API) handleAppointmentCreate(w http.ResponseWriter, r *http.Request) {
	var payload appointmentPayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, err)
		return
	}
	appointment, err := payload.toModel()
	if err != nil {
		writeError(w, err)
		return
	}

	created, err := a.appointments.Create(r.Context(), appointment)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, viewAppointment(created))
}

func (a *API) handleAppointmentGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	appointment, err := a.appointments.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, viewAppointment(appointment))
}

func (a *API) handleAppointmentUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var payload appointmentPayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, err)
		return
	}
	appointment, err := payload.toModel()
	if err != nil {
		writeError(w, err)
		return
	}
	appointment.ID = id

	updated, err := a.appointments.Update(r.Context(), appointment)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, viewAppointment(updated))
}

func (a *API) handleAppointmentDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := a.appointments.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
