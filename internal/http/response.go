package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"spendwise/internal/core"
	"spendwise/internal/log"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

// createdResponse answers a submission. Persisted is false for demo records.
type createdResponse struct {
	Record    any  `json:"record"`
	Persisted bool `json:"persisted"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

var validationErrors = []error{
	core.ErrMissingField,
	core.ErrInvalidAmount,
	core.ErrInvalidCategory,
	core.ErrInvalidFrequency,
	core.ErrInvalidDate,
	core.ErrInvalidEmail,
	core.ErrInvalidRole,
}

func isValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// writeServiceError maps a service error to a status. Validation failures
// are the caller's fault and carry the message; anything else is logged
// and hidden.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if isValidation(err) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
		log.FieldOperation, op,
		log.FieldPath, r.URL.Path,
		log.FieldError, err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

// decodeJSON reads a single JSON object from the body. Validation errors
// raised while decoding, such as a malformed amount, pass through
// unchanged so they map to 422.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if isValidation(err) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return errBadRequest("empty request body")
		}
		return errBadRequest(fmt.Sprintf("invalid JSON body: %v", err))
	}
	if dec.More() {
		return errBadRequest("request body must contain a single JSON object")
	}
	return nil
}

type badRequestError string

func (e badRequestError) Error() string { return string(e) }

func errBadRequest(msg string) error { return badRequestError(msg) }

// writeDecodeError answers a body that could not be decoded.
func writeDecodeError(w http.ResponseWriter, err error) {
	var bad badRequestError
	if errors.As(err, &bad) {
		writeError(w, http.StatusBadRequest, bad.Error())
		return
	}
	writeError(w, http.StatusUnprocessableEntity, err.Error())
}

// parseMonthParams reads year and month from the query, defaulting to the
// current month. Present but unparsable values are rejected.
func parseMonthParams(r *http.Request, now core.Date) (year, month int, err error) {
	year, month = now.Year(), int(now.Month())
	q := r.URL.Query()
	if v := strings.TrimSpace(q.Get("year")); v != "" {
		if year, err = strconv.Atoi(v); err != nil {
			return 0, 0, fmt.Errorf("%w: year %q", core.ErrInvalidDate, v)
		}
	}
	if v := strings.TrimSpace(q.Get("month")); v != "" {
		if month, err = strconv.Atoi(v); err != nil {
			return 0, 0, fmt.Errorf("%w: month %q", core.ErrInvalidDate, v)
		}
	}
	return year, month, nil
}
