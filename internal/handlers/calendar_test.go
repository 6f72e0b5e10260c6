package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-portal-server/internal/clinic"
	"clinic-portal-server/internal/config"
)

// clinicStub serves the reference-data and schedule endpoints; while failing
// is set, every request gets a 502.
func clinicStub(t *testing.T, failing *atomic.Bool) *clinic.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		switch r.URL.Path {
		case "/BranchOffice":
			_ = json.NewEncoder(w).Encode([]clinic.BranchOffice{{ID: "u1", Name: "Unidade Centro", Active: true}})
		case "/Employee":
			_ = json.NewEncoder(w).Encode([]clinic.Employee{{ID: "p1", Name: "Ana", BranchOfficeID: "u1", Active: true}})
		case "/Schedule":
			_ = json.NewEncoder(w).Encode([]clinic.Appointment{})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return clinic.NewClient(server.URL, clinic.Session{}, 5*time.Second, zerolog.Nop())
}

func newTestCalendarHandler(t *testing.T, failing *atomic.Bool) *CalendarHandler {
	t.Helper()
	cfg := &config.Config{Clinic: config.ClinicConfig{DefaultAppointmentMinutes: 60}}
	return NewCalendarHandler(nil, cfg, clinicStub(t, failing), NewCalendarSessions(), zerolog.Nop())
}

func TestAcquireDoesNotCacheFailedInitialization(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)
	h := newTestCalendarHandler(t, &failing)

	_, err := h.acquire(context.Background(), "user-1", "tok-1", "patient-1")
	require.ErrorIs(t, err, clinic.ErrUnavailable)

	_, cached := h.Sessions.lookup("user-1", "tok-1")
	assert.False(t, cached, "a session that never loaded must not be cached")

	// Clinic back up: the next request initializes cleanly
	failing.Store(false)
	controller, err := h.acquire(context.Background(), "user-1", "tok-1", "patient-1")
	require.NoError(t, err)
	assert.NotEmpty(t, controller.BranchOffices(), "reference data loaded on recovery")

	_, cached = h.Sessions.lookup("user-1", "tok-1")
	assert.True(t, cached)
}

func TestAcquireReturnsCachedController(t *testing.T) {
	var failing atomic.Bool
	h := newTestCalendarHandler(t, &failing)

	first, err := h.acquire(context.Background(), "user-1", "tok-1", "patient-1")
	require.NoError(t, err)
	second, err := h.acquire(context.Background(), "user-1", "tok-1", "patient-1")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestAcquireRebuildsOnTokenChange(t *testing.T) {
	var failing atomic.Bool
	h := newTestCalendarHandler(t, &failing)

	first, err := h.acquire(context.Background(), "user-1", "tok-1", "patient-1")
	require.NoError(t, err)

	// A fresh login rotates the clinic token; the old binding is replaced
	second, err := h.acquire(context.Background(), "user-1", "tok-2", "patient-1")
	require.NoError(t, err)
	assert.NotSame(t, first, second)

	_, cached := h.Sessions.lookup("user-1", "tok-1")
	assert.False(t, cached, "the old token no longer resolves a session")
}

func TestEvictDropsCachedSession(t *testing.T) {
	var failing atomic.Bool
	h := newTestCalendarHandler(t, &failing)

	_, err := h.acquire(context.Background(), "user-1", "tok-1", "patient-1")
	require.NoError(t, err)

	h.Sessions.evict("user-1")
	_, cached := h.Sessions.lookup("user-1", "tok-1")
	assert.False(t, cached)

	// Evicting an unknown user is a no-op
	h.Sessions.evict("user-2")
}
