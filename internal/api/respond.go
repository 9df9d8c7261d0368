package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/learningtriangle/ltgate/internal/apperr"
	"github.com/learningtriangle/ltgate/internal/chat"
	"github.com/learningtriangle/ltgate/internal/intake"
)

const maxRequestBodySize = 1 << 20 // 1MB

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

func httpError(w http.ResponseWriter, code int, msg, details string) {
	writeJSON(w, code, errorBody{Error: msg, Details: details})
}

// writeAppError answers with the status and caller-safe message of err.
// Errors that are not *apperr.Error never leak their text.
func writeAppError(w http.ResponseWriter, err error, fallback string) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		slog.Error("unclassified handler error", "error", err)
		httpError(w, http.StatusInternalServerError, fallback, "")
		return
	}
	httpError(w, apperr.Status(err), ae.Message, ae.Details)
}

func methodNotAllowed(msg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeAppError(w, apperr.New(apperr.MethodNotAllowed, msg), msg)
	}
}

// recoverPanics turns a handler panic into a 500 with the usual error body.
// Gateway failures stay generic; elsewhere the panic value goes into details.
func recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			slog.Error("handler panic", "path", r.URL.Path, "panic", rec, "stack", string(debug.Stack()))
			if r.URL.Path == "/gateway" {
				httpError(w, http.StatusInternalServerError, intake.MsgServerError, "")
				return
			}
			httpError(w, http.StatusInternalServerError, chat.MsgInternal, fmt.Sprint(rec))
		}()
		next.ServeHTTP(w, r)
	})
}

// preflight answers a bare OPTIONS request with 200 and no body.
func preflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
