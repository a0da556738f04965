package httpapi

import (
	"net/http"

	"github.com/eyedocs/caredesk/internal/common"
	"github.com/eyedocs/caredesk/internal/crm"
)

func (a *API) handleAnalyticsOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := a.analytics.Overview(r.Context(), queryInt(r, "period", 0))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, overview)
}

type uploadURLResponse struct {
	Key       string `json:"key"`
	UploadURL string `json:"uploadUrl"`
}

func (a *API) handleAttachmentUploadURL(w http.ResponseWriter, r *http.Request) {
	patientID := int64(queryInt(r, "patientId", 0))
	if patientID <= 0 {
		writeError(w, common.ErrorValidation)
		return
	}

	key, url, err := a.attachments.GetPresignedPutURL(r.Context(), patientID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, uploadURLResponse{Key: key, UploadURL: url})
}

type downloadURLResponse struct {
	DownloadURL string `json:"downloadUrl"`
}

// handleAttachmentDownloadURL takes the key as a query parameter because
// storage keys contain slashes.
func (a *API) handleAttachmentDownloadURL(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, common.ErrorValidation)
		return
	}

	url, err := a.attachments.GetPresignedGetURL(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, downloadURLResponse{DownloadURL: url})
}

func (a *API) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, a.settings.View(r.Context()))
}

type settingsUpdateResponse struct {
	Saved bool            `json:"saved"`
	Probe crm.ProbeResult `json:"probe"`
}

// handleSettingsUpdate probes before saving. A failed probe is a 200 with
// saved=false; the operator sees the org's error and the previous
// credentials stay active.
func (a *API) handleSettingsUpdate(w http.ResponseWriter, r *http.Request) {
	var settings crm.Settings
	if err := decodeBody(r, &settings); err != nil {
		writeError(w, err)
		return
	}

	result, err := a.settings.Update(r.Context(), settings)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, settingsUpdateResponse{Saved: result.Connected, Probe: result})
}

func (a *API) handleSettingsReset(w http.ResponseWriter, r *http.Request) {
	if err := a.settings.Reset(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleSettingsStatus(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, a.settings.Probe(r.Context()))
}
