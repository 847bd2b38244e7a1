package httpapi

import (
	"net/http"

	"github.com/raine/room-design-studio/internal/design"
)

// kindToStatus maps error kinds to HTTP status codes.
var kindToStatus = map[design.ErrorKind]int{
	design.KindInsufficientTokens: http.StatusPaymentRequired,
	design.KindConfig:             http.StatusBadRequest,
	design.KindBadRequest:         http.StatusBadRequest,
	design.KindNoPriorDesign:      http.StatusConflict,
	design.KindProvider:           http.StatusBadGateway,
	design.KindParse:              http.StatusBadGateway,
	design.KindTimeout:            http.StatusGatewayTimeout,
	design.KindCanceled:           http.StatusRequestTimeout,
}

func httpStatus(kind design.ErrorKind) int {
	if kind == "" {
		return http.StatusOK
	}
	if s, ok := kindToStatus[kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// errorMessage hides internal error details from clients.
func errorMessage(kind design.ErrorKind, err error) string {
	if kind == design.KindInternal {
		return "internal error"
	}
	return err.Error()
}
