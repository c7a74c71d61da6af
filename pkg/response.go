package pkg

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
)

// APIResponse, HTTP katmanının tek zarfı: {success, data, error}.
// client.MessagesClient aynı zarfı çözer.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// statusMap, sentinel → HTTP status. Sıra önemlidir; ilk eşleşen kazanır.
var statusMap = []struct {
	err    error
	status int
}{
	{ErrNotFound, http.StatusNotFound},
	{ErrUnauthorized, http.StatusUnauthorized},
	{ErrForbidden, http.StatusForbidden},
	{ErrAlreadyExists, http.StatusConflict},
	{ErrInvalidState, http.StatusConflict},
	{ErrBadRequest, http.StatusBadRequest},
}

// JSON, data'yı başarılı zarf içinde yazar.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, APIResponse{Success: true, Data: data})
}

// Error, err'i sentinel zincirine göre status'a çevirip yazar.
// Eşleşmeyen hatalar 500 olur; metinleri sadece loga gider.
func Error(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		log.Error().Str("module", "http").Err(err).Msg("internal error")
		write(w, status, APIResponse{Error: ErrInternal.Error()})
		return
	}
	write(w, status, APIResponse{Error: err.Error()})
}

// ErrorWithMessage, verilen status ve mesajla hata zarfı yazar.
func ErrorWithMessage(w http.ResponseWriter, status int, message string) {
	write(w, status, APIResponse{Error: message})
}

// TooManyRequests, 429 ile Retry-After başlığını (saniye) birlikte yazar.
func TooManyRequests(w http.ResponseWriter, retryAfterSeconds int, message string) {
	if retryAfterSeconds < 1 {
		retryAfterSeconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	write(w, http.StatusTooManyRequests, APIResponse{Error: message})
}

func statusOf(err error) int {
	for _, m := range statusMap {
		if errors.Is(err, m.err) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}

func write(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Warn().Str("module", "http").Err(err).Int("status", status).Msg("failed to encode response")
	}
}
