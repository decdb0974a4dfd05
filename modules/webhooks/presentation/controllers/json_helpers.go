package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/iota-uz/hookrelay/pkg/configuration"
	"github.com/iota-uz/hookrelay/pkg/httpapi"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	if err := httpapi.WriteJSON(w, status, payload); err != nil {
		panic(err)
	}
}

func ensureRequestID(w http.ResponseWriter, r *http.Request) string {
	if r == nil {
		return ""
	}
	header := strings.TrimSpace(configuration.Use().RequestIDHeader)
	if header == "" {
		header = "X-Request-ID"
	}

	requestID := strings.TrimSpace(r.Header.Get(header))
	if requestID == "" {
		requestID = strings.TrimSpace(r.Header.Get("X-Request-Id"))
	}
	if requestID == "" {
		requestID = uuid.NewString()
		w.Header().Set(header, requestID)
	}
	return requestID
}

func writeAPIError(w http.ResponseWriter, r *http.Request, status int, code string, message string) {
	meta := map[string]string{
		"request_id": ensureRequestID(w, r),
	}
	if err := httpapi.WriteError(w, status, code, message, meta); err != nil {
		panic(err)
	}
}
