package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	maxBodyBytes = 1 << 20

	messageInvalidBody  = "Invalid request body"
	messageBodyTooLarge = "Request body too large"
)

type errorResponse struct {
	Error string `json:"error"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	if r == nil || r.Body == nil {
		return io.EOF
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(target); err != nil {
		return err
	}
	return nil
}

// readJSON decodes the request body into target. On failure it answers the
// request and returns false: 413 past maxBodyBytes, 400 otherwise.
func (s *Server) readJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	err := decodeJSON(w, r, target)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeMessage(w, http.StatusRequestEntityTooLarge, messageBodyTooLarge)
	case isSyntaxError(err):
		writeMessage(w, http.StatusBadRequest, messageInvalidBody)
	default:
		s.logger.WithContext(r.Context()).Warn("http.body.read_failed", "path", r.URL.Path, "error", err)
		writeError(w, goerrors.Wrap(err, goerrors.CategoryBadInput, messageInvalidBody), messageInvalidBody)
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeError maps err to a status. Client errors echo the domain message;
// server errors answer with fallback so internal detail never leaks.
func writeError(w http.ResponseWriter, err error, fallback string) {
	status, message := mapError(err, fallback)
	writeMessage(w, status, message)
}

func mapError(err error, fallback string) (int, string) {
	if err == nil {
		return http.StatusInternalServerError, fallback
	}
	switch {
	case goerrors.IsCategory(err, goerrors.CategoryBadInput), goerrors.IsValidation(err):
		return http.StatusBadRequest, messageOf(err, fallback)
	case goerrors.IsNotFound(err):
		return http.StatusNotFound, messageOf(err, fallback)
	}
	return http.StatusInternalServerError, fallback
}

// messageOf returns the message of the outermost domain error.
func messageOf(err error, fallback string) string {
	var domainErr *goerrors.Error
	if errors.As(err, &domainErr) && strings.TrimSpace(domainErr.Message) != "" {
		return domainErr.Message
	}
	return fallback
}

// isSyntaxError reports whether err comes from a malformed or mistyped
// JSON document rather than from reading the body.
func isSyntaxError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
