package api

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "practicelab/errors"
)

// errorBody is the JSON shape of every control API error.
type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func (h *ApiHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", "error", err)
	}
}

// writeError maps coded errors to their status; anything else is a 500.
func (h *ApiHandler) writeError(w http.ResponseWriter, err error) {
	var coded *apperrors.Error
	if !errors.As(err, &coded) {
		h.logger.Error("unhandled error", "error", err)
		coded = apperrors.Internal("internal server error")
	}
	if coded.Code == apperrors.CodeInternal {
		h.logger.Error("control api error", "error", err)
	}
	h.writeJSON(w, coded.HTTPStatus(), errorBody{Error: coded.Error(), Code: string(coded.Code), Details: coded.Details})
}
