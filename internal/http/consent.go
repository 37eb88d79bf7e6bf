package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/goliatone/go-storefront/internal/consent"
)

type consentResponse struct {
	VisitorID    string               `json:"visitorId"`
	HasConsented bool                 `json:"hasConsented"`
	Preferences  *consent.Preferences `json:"preferences,omitempty"`
	Timestamp    *time.Time           `json:"timestamp,omitempty"`
}

func consentView(visitor string, record consent.Record, found bool) consentResponse {
	resp := consentResponse{VisitorID: visitor, HasConsented: found}
	if found {
		prefs := record.Preferences
		stamp := record.Timestamp
		resp.Preferences = &prefs
		resp.Timestamp = &stamp
	}
	return resp
}

func (s *Server) writeConsentError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, consent.ErrMissingVisitor) {
		writeMessage(w, http.StatusBadRequest, "Visitor id is required")
		return
	}
	s.logger.WithContext(r.Context()).Error("http.consent.failed", "error", err)
	writeMessage(w, http.StatusInternalServerError, "Failed to access consent preferences")
}

func (s *Server) handleConsentGet(w http.ResponseWriter, r *http.Request) {
	if s.consent == nil {
		unavailable(w)
		return
	}
	visitor := r.PathValue("visitorId")
	record, found, err := s.consent.Get(r.Context(), visitor)
	if err != nil {
		s.writeConsentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, consentView(visitor, record, found))
}

func (s *Server) handleConsentSave(w http.ResponseWriter, r *http.Request) {
	if s.consent == nil {
		unavailable(w)
		return
	}
	var prefs consent.Preferences
	if !s.readJSON(w, r, &prefs) {
		return
	}
	visitor := r.PathValue("visitorId")
	record, err := s.consent.Save(r.Context(), visitor, prefs)
	if err != nil {
		s.writeConsentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, consentView(visitor, record, true))
}

func (s *Server) handleConsentReset(w http.ResponseWriter, r *http.Request) {
	if s.consent == nil {
		unavailable(w)
		return
	}
	if err := s.consent.Reset(r.Context(), r.PathValue("visitorId")); err != nil {
		s.writeConsentError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
