package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/learningtriangle/ltgate/internal/intake"
	"github.com/learningtriangle/ltgate/internal/jsonfield"
)

// gatewayBody is the POST body of /gateway: the action name alongside the
// form fields.
type gatewayBody struct {
	Action string `json:"action"`
	intake.Payload
}

// UnmarshalJSON decodes the action and the form fields separately, since the
// embedded Payload brings its own decoder.
func (b *gatewayBody) UnmarshalJSON(data []byte) error {
	var head struct {
		Action jsonfield.String `json:"action"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	b.Action = string(head.Action)
	return json.Unmarshal(data, &b.Payload)
}

func handleGateway(gw *intake.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body gatewayBody
		if r.Method == http.MethodPost {
			r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
			defer r.Body.Close()
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				// Syntactically broken or non-object bodies fall through as an
				// unknown action; mistyped fields are decoded leniently.
				slog.Debug("gateway body did not decode", "error", err)
				body = gatewayBody{}
			}
		}

		action := body.Action
		if action == "" {
			action = r.URL.Query().Get("action")
		}

		res, err := gw.Handle(r.Context(), intake.Request{
			Method:  r.Method,
			Action:  intake.ParseAction(action),
			Payload: body.Payload,
		})
		if err != nil {
			writeAppError(w, err, intake.MsgServerError)
			return
		}

		writeJSON(w, http.StatusOK, res)
	}
}
