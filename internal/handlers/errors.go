package handlers

import (
	"AssiScan/internal/extract"
	"AssiScan/internal/model"
	"AssiScan/internal/repo"
	"AssiScan/internal/service"
	"AssiScan/internal/storage"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// statusFor переводит ошибки доменных пакетов в HTTP-коды.
func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrBadInput),
		errors.Is(err, extract.ErrInvalidImage),
		errors.Is(err, extract.ErrInvalidDocument),
		errors.Is(err, model.ErrInvalidSlot):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, repo.ErrNotFound),
		errors.Is(err, storage.ErrNotExist),
		errors.Is(err, storage.ErrInvalidName):
		return http.StatusNotFound
	case errors.Is(err, repo.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, extract.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, extract.ErrExtraction), errors.Is(err, extract.ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError пишет ошибку как http.Error. Детали 5xx остаются в логе.
func writeError(w http.ResponseWriter, logger *zap.SugaredLogger, op string, err error) {
	code := statusFor(err)
	msg := err.Error()
	switch code {
	case http.StatusInternalServerError:
		logger.Errorw(op+": internal error", "error", err)
		msg = "internal error"
	case http.StatusBadGateway:
		logger.Warnw(op+": extraction failed", "error", err)
		if errors.Is(err, extract.ErrMalformedResponse) {
			msg = "Failed to read document data. Please try clearer image."
		} else {
			msg = "document service unavailable"
		}
	case http.StatusGatewayTimeout:
		logger.Warnw(op+": extraction timed out", "error", err)
		msg = "document service timed out"
	default:
		logger.Infow(op+": rejected", "status", code, "error", err)
	}
	http.Error(w, msg, code)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
