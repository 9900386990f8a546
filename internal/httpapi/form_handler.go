package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/golang/glog"
	"github.com/gorilla/mux"

	"sdgplan/collab/internal/auth"
	"sdgplan/collab/internal/collab"
	"sdgplan/collab/internal/storage"
)

// FormInput is the body of create and update requests. Absent fields are
// left unchanged on update.
type FormInput struct {
	NameOfDesigners   *string        `json:"name_of_designers"`
	ImpactProjectName *string        `json:"impact_project_name"`
	Description       *string        `json:"description"`
	PlanContent       map[string]any `json:"plan_content"`
	Status            *string        `json:"status"`
}

func (in FormInput) apply(f *storage.Form) error {
	if in.NameOfDesigners != nil {
		f.NameOfDesigners = *in.NameOfDesigners
	}
	if in.ImpactProjectName != nil {
		f.ImpactProjectName = *in.ImpactProjectName
	}
	if in.Description != nil {
		f.Description = *in.Description
	}
	if in.PlanContent != nil {
		f.PlanContent = in.PlanContent
	}
	if in.Status != nil {
		if *in.Status != storage.StatusDraft && *in.Status != storage.StatusFinal {
			return errInvalidStatus
		}
		f.Status = *in.Status
	}
	return nil
}

var errInvalidStatus = errors.New("status must be draft or final")

type FormHandler struct {
	store  storage.Store
	collab *collab.Server
}

func NewFormHandler(store storage.Store, server *collab.Server) *FormHandler {
	return &FormHandler{store: store, collab: server}
}

// CreateForm handles POST /v1/forms
func (h *FormHandler) CreateForm(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}
	var form storage.Form
	if err := in.apply(&form); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := h.store.CreateForm(r.Context(), form)
	if err != nil {
		glog.Errorf("failed to create form: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create form")
		return
	}
	if p, ok := auth.ParticipantFromContext(r.Context()); ok {
		glog.Infof("form %d created by %s", created.ID, p.ID)
	}
	writeJSON(w, http.StatusCreated, created)
}

// GetForm handles GET /v1/forms/{formID}
func (h *FormHandler) GetForm(w http.ResponseWriter, r *http.Request) {
	formID, ok := formIDFromPath(w, r)
	if !ok {
		return
	}
	form, err := h.store.GetForm(r.Context(), formID)
	if err != nil {
		writeStoreError(w, formID, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

// UpdateForm handles PUT /v1/forms/{formID}
func (h *FormHandler) UpdateForm(w http.ResponseWriter, r *http.Request) {
	formID, ok := formIDFromPath(w, r)
	if !ok {
		return
	}
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}
	form, err := h.store.UpdateForm(r.Context(), formID, in.apply)
	if errors.Is(err, errInvalidStatus) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeStoreError(w, formID, err)
		return
	}
	h.collab.Gate().AfterUpdate(r.Context(), formID)
	writeJSON(w, http.StatusOK, form)
}

// CreateGoogleDoc handles POST /v1/forms/{formID}/google-doc
func (h *FormHandler) CreateGoogleDoc(w http.ResponseWriter, r *http.Request) {
	formID, ok := formIDFromPath(w, r)
	if !ok {
		return
	}
	link, err := h.collab.Gate().CreateLink(r.Context(), formID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, link)
	case errors.Is(err, collab.ErrNoSink):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeStoreError(w, formID, err)
	}
}

// Collaborators handles GET /v1/forms/{formID}/collaborators
func (h *FormHandler) Collaborators(w http.ResponseWriter, r *http.Request) {
	formID, ok := formIDFromPath(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"form_id":       formID,
		"collaborators": h.collab.Registry().MembersOf(formID),
	})
}

// ServeWebsocket handles GET /ws/forms/{formID}
func (h *FormHandler) ServeWebsocket(w http.ResponseWriter, r *http.Request) {
	formID, ok := formIDFromPath(w, r)
	if !ok {
		return
	}
	h.collab.ServeForm(w, r, formID)
}

func formIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	formID, err := strconv.ParseInt(mux.Vars(r)["formID"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid form id")
		return 0, false
	}
	return formID, true
}

func decodeInput(w http.ResponseWriter, r *http.Request) (FormInput, bool) {
	var in FormInput
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return FormInput{}, false
	}
	return in, true
}

func writeStoreError(w http.ResponseWriter, formID int64, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "form not found")
		return
	}
	glog.Errorf("form %d: %v", formID, err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		glog.Warningf("failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
