package api

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/eqflat/eqflat/pkg/errors"
)

// errorResponse is the JSON payload for failed requests.
type errorResponse struct {
	Error     errorBody `json:"error"`
	RequestID string    `json:"request_id,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps an error to an HTTP status via its structured code and
// writes the JSON error payload.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.GetCode(err)
	writeJSON(w, statusFor(code), errorResponse{
		Error: errorBody{
			Code:    string(orInternal(code)),
			Message: apperrors.UserMessage(err),
		},
		RequestID: reqID(r.Context()),
	})
}

func statusFor(code apperrors.Code) int {
	switch code {
	case apperrors.ErrCodeInvalidInput,
		apperrors.ErrCodeInvalidExpr,
		apperrors.ErrCodeInvalidDefinition,
		apperrors.ErrCodeInvalidOptions,
		apperrors.ErrCodeInvalidFormat:
		return http.StatusBadRequest
	case apperrors.ErrCodeSymbolCollision,
		apperrors.ErrCodeUnknownSymbol,
		apperrors.ErrCodeNonNumericParam:
		return http.StatusUnprocessableEntity
	case apperrors.ErrCodeNotFound, apperrors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func orInternal(code apperrors.Code) apperrors.Code {
	if code == "" {
		return apperrors.ErrCodeInternal
	}
	return code
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
