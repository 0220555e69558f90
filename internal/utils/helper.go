package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"ingressos-web/internal/logger"

	"go.uber.org/zap"
)

func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L().Error("failed to encode response", zap.Error(err))
	}
}

func WriteJSONError(w http.ResponseWriter, message string, code int) {
	WriteJSON(w, code, map[string]string{"error": message})
}

var ErrEmptyBody = errors.New("empty request body")

// DecodeJSON reads at most limit bytes of the request body into v.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any, limit int64) error {
	if r.Body == nil || r.Body == http.NoBody {
		return ErrEmptyBody
	}
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, limit)).Decode(v)
}
