package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

func newReplayRouter(t *testing.T, opts ReplayProtectionOptions, handler http.HandlerFunc) *mux.Router {
	t.Helper()
	router := mux.NewRouter()
	router.Use(ReplayProtection(opts))
	router.HandleFunc("/webhooks/events", handler).Methods(http.MethodPost)
	router.HandleFunc("/other", handler).Methods(http.MethodPost)
	return router
}

func TestReplayProtection_DuplicateAcknowledgedWithoutHandler(t *testing.T) {
	t.Parallel()

	calls := 0
	router := newReplayRouter(t, ReplayProtectionOptions{
		Paths: []string{"/webhooks/events"},
	}, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	})

	first := httptest.NewRequest(http.MethodPost, "/webhooks/events", strings.NewReader(`{"kind":"mo_sms"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, first)
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, 1, calls)

	second := httptest.NewRequest(http.MethodPost, "/webhooks/events", strings.NewReader(`{"kind":"mo_sms"}`))
	rr2 := httptest.NewRecorder()
	router.ServeHTTP(rr2, second)

	require.Equal(t, http.StatusOK, rr2.Code)
	require.Equal(t, 1, calls, "replayed request must not reach the handler")
}

func TestReplayProtection_TenantHeaderKeepsTenantsApart(t *testing.T) {
	t.Parallel()

	calls := 0
	router := newReplayRouter(t, ReplayProtectionOptions{
		Paths:      []string{"/webhooks/events"},
		KeyHeaders: []string{"X-Tenant-ID"},
	}, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	})

	body := `{"kind":"mo_sms","payload":{"text":["hi"]}}`

	first := httptest.NewRequest(http.MethodPost, "/webhooks/events", strings.NewReader(body))
	first.Header.Set("X-Tenant-ID", "61711b90-f571-4a49-9ac4-5e1a9d2f2f6e")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, first)
	require.Equal(t, http.StatusCreated, rr.Code)

	// Identical body from another tenant is a distinct request, not a replay.
	second := httptest.NewRequest(http.MethodPost, "/webhooks/events", strings.NewReader(body))
	second.Header.Set("X-Tenant-ID", "cdd48e1b-04e9-4d32-8184-6f2b5e0a3290")
	rr2 := httptest.NewRecorder()
	router.ServeHTTP(rr2, second)

	require.Equal(t, http.StatusCreated, rr2.Code)
	require.Equal(t, 2, calls)
}

func TestReplayProtection_FailedAttemptIsNotMarked(t *testing.T) {
	t.Parallel()

	calls := 0
	router := newReplayRouter(t, ReplayProtectionOptions{
		Paths: []string{"/webhooks/events"},
	}, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})

	body := `{"kind":"alarm"}`

	first := httptest.NewRequest(http.MethodPost, "/webhooks/events", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, first)
	require.Equal(t, http.StatusInternalServerError, rr.Code)

	// A retry after a failure must be allowed through.
	second := httptest.NewRequest(http.MethodPost, "/webhooks/events", strings.NewReader(body))
	rr2 := httptest.NewRecorder()
	router.ServeHTTP(rr2, second)

	require.Equal(t, http.StatusCreated, rr2.Code)
	require.Equal(t, 2, calls)
}

func TestReplayProtection_UnprotectedPathPassesThrough(t *testing.T) {
	t.Parallel()

	calls := 0
	router := newReplayRouter(t, ReplayProtectionOptions{
		Paths: []string{"/webhooks/events"},
	}, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/other", strings.NewReader("same"))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
	}
	require.Equal(t, 2, calls)
}

func TestReplayProtection_BodyRestoredForHandler(t *testing.T) {
	t.Parallel()

	router := newReplayRouter(t, ReplayProtectionOptions{
		Paths: []string{"/webhooks/events"},
	}, func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(body)
	})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/events", bytes.NewBufferString("hello"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "hello", rr.Body.String())
}

func TestReplayProtection_OversizedBodyRejected(t *testing.T) {
	t.Parallel()

	router := newReplayRouter(t, ReplayProtectionOptions{
		Paths:        []string{"/webhooks/events"},
		MaxBodyBytes: 8,
	}, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/events", strings.NewReader("way past the configured cap"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}
