package api

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"

	"github.com/learningtriangle/ltgate/internal/chat"
	"github.com/learningtriangle/ltgate/internal/jsonfield"
)

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message jsonfield.String `json:"message"`
}

func handleChat(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		// A body that does not decode carries no message; the service
		// decides between the config and empty-message errors.
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Debug("chat body did not decode", "error", err)
			req = ChatRequest{}
		}

		resp, err := svc.Handle(r.Context(), chat.Request{
			Message:  string(req.Message),
			SourceIP: sourceIP(r),
		})
		if err != nil {
			writeAppError(w, err, chat.MsgInternal)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// sourceIP returns the caller address. RealIP has already replaced
// RemoteAddr with the forwarded client address when a proxy header is set.
func sourceIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
