package http

import (
	"net/http"

	"github.com/goliatone/go-storefront/internal/mailer"
)

type contactResponse struct {
	Success bool              `json:"success"`
	Data    mailer.SendResult `json:"data"`
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	if s.contact == nil {
		unavailable(w)
		return
	}
	var sub mailer.Submission
	if !s.readJSON(w, r, &sub) {
		return
	}
	result, err := s.contact.Submit(r.Context(), sub)
	if err != nil {
		// configuration messages are fixed strings and safe to return
		if mailer.IsNotConfigured(err) {
			writeMessage(w, http.StatusInternalServerError, messageOf(err, mailer.MessageSendFailed))
			return
		}
		s.logger.WithContext(r.Context()).Error("http.contact.failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, mailer.MessageSendFailed)
		return
	}
	writeJSON(w, http.StatusOK, contactResponse{Success: true, Data: result})
}
