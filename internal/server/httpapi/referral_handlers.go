package httpapi

import (
	"net/http"

	referralsrepo "github.com/eyedocs/caredesk/internal/server/repositories/referrals"
)

type referralWriteResponse struct {
	Referral referralView `json:"referral"`
	Sync     syncInfo     `json:"sync"`
}

func (a *API) handleReferralList(w http.ResponseWriter, r *http.Request) {
	filter := referralsrepo.ListFilter{
		Search:  r.URL.Query().Get("search"),
		Urgency: r.URL.Query().Get("urgency"),
		Status:  r.URL.Query().Get("status"),
		Limit:   queryInt(r, "limit", 20),
		Offset:  queryInt(r, "offset", 0),
	}

	list, total, err := a.referrals.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writePage(w, viewReferrals(list), total, filter.Limit, filter.Offset)
}

func (a *API) handleReferralCreate(w http.ResponseWriter, r *http.Request) {
	var payload referralPayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, err)
		return
	}
	referral, err := payload.toModel()
	if err != nil {
		writeError(w, err)
		return
	}

	created, err := a.referrals.Create(r.Context(), referral)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusCreated, referralWriteResponse{
		Referral: viewReferral(created),
		Sync:     syncInfo{Status: created.SyncStatus, Mode: a.syncMode()},
	})
}

func (a *API) handleReferralGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	referral, err := a.referrals.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, viewReferral(referral))
}

func (a *API) handleReferralUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var payload referralPayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, err)
		return
	}
	referral, err := payload.toModel()
	if err != nil {
		writeError(w, err)
		return
	}
	referral.ID = id

	updated, err := a.referrals.Update(r.Context(), referral)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, referralWriteResponse{
		Referral: viewReferral(updated),
		Sync:     syncInfo{Status: updated.SyncStatus, Mode: a.syncMode()},
	})
}

func (a *API) handleReferralDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := a.referrals.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReferralResync queues one more sync attempt without changing the
// local record.
func (a *API) handleReferralResync(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	referral, err := a.referrals.Resync(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusAccepted, referralWriteResponse{
		Referral: viewReferral(referral),
		Sync:     syncInfo{Status: referral.SyncStatus, Mode: a.syncMode()},
	})
}
