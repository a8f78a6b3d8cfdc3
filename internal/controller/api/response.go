package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/Freeeeeet/booking_engine/internal/service"
)

const (
	headerContentType = "Content-Type"
	mimeJSON          = "application/json"

	codeUnauthorized = "unauthorized"
	codeRateLimited  = "rate_limited"
	codeInternal     = "internal"

	messageInternal = "something went wrong on our side, please try again later"

	maxBodyBytes = 64 << 10
)

// SuccessResponse конверт успешного ответа
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
}

// ErrorResponse конверт ошибки. Code стабилен, по нему клиент выбирает реакцию.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set(headerContentType, mimeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, SuccessResponse{Success: true, Message: message, Data: data})
}

func writeErrorCode(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Success: false, Code: code, Message: message})
}

// writeError переводит ошибку сервиса в HTTP-ответ
func writeError(logger *zap.Logger, w http.ResponseWriter, r *http.Request, err error) {
	be, ok := service.AsBookingError(err)
	if !ok {
		logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeErrorCode(w, http.StatusInternalServerError, codeInternal, messageInternal)
		return
	}

	writeErrorCode(w, statusFor(be.Category()), string(be.Code), be.Message)
}

func statusFor(category service.Category) int {
	switch category {
	case service.CategoryConfig:
		return http.StatusForbidden
	case service.CategoryInput:
		return http.StatusBadRequest
	case service.CategoryConcurrency:
		return http.StatusConflict
	case service.CategoryNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// decodeJSON читает тело запроса; ошибка разбора возвращается как invalid_input
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &service.BookingError{Code: service.CodeInvalidInput, Message: "request body is too large"}
		}
		return &service.BookingError{Code: service.CodeInvalidInput, Message: "request body must be valid JSON", Err: err}
	}
	return nil
}
