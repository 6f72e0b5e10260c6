package clinic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	session := Session{AccessToken: "token-abc", PatientID: "patient-1"}
	return NewClient(server.URL, session, 5*time.Second, zerolog.Nop())
}

func TestListByPatientSendsBearerAndQuery(t *testing.T) {
	var gotAuth, gotQuery, gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query().Get("idCliente")
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode([]Appointment{{ID: "a1", Title: "Fisioterapia"}})
	})

	appointments, err := client.ListByPatient(context.Background(), "patient-1")
	require.NoError(t, err)
	require.Len(t, appointments, 1)
	assert.Equal(t, "Fisioterapia", appointments[0].Title)
	assert.Equal(t, "Bearer token-abc", gotAuth)
	assert.Equal(t, "patient-1", gotQuery)
	assert.Equal(t, "/Schedule", gotPath)
}

func TestListByPatientNoContentMeansEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	appointments, err := client.ListByPatient(context.Background(), "patient-1")
	require.NoError(t, err)
	require.NotNil(t, appointments, "no content marshals as [] rather than null")
	assert.Empty(t, appointments)
}

func TestReferenceListsNoContentMeansEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	offices, err := client.ListBranchOffices(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, offices)

	employees, err := client.ListEmployees(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotNil(t, employees)
}

func TestCreateDecodesStoredAppointment(t *testing.T) {
	var gotBody AppointmentRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(Appointment{ID: "new-1", Title: gotBody.Title})
	})

	created, err := client.Create(context.Background(), AppointmentRequest{
		Title:     "Consulta",
		StartAt:   "2025-11-10T09:00:00",
		EndAt:     "2025-11-10T10:00:00",
		PatientID: "patient-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "new-1", created.ID)
	assert.Equal(t, "Consulta", gotBody.Title)
	assert.Equal(t, "2025-11-10T09:00:00", gotBody.StartAt)
	assert.Empty(t, gotBody.ID, "create payload carries no id")
}

func TestUpdatePutsIDInBody(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody AppointmentRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(Appointment{ID: gotBody.ID})
	})

	_, err := client.Update(context.Background(), "appt-7", AppointmentRequest{Title: "Retorno"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/Schedule", gotPath, "update addresses the collection, the id travels in the body")
	assert.Equal(t, "appt-7", gotBody.ID)
}

func TestDeleteUsesPathID(t *testing.T) {
	var gotMethod, gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.Delete(context.Background(), "appt-7"))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/Schedule/appt-7", gotPath)
}

func TestListEmployeesFiltersByBranch(t *testing.T) {
	var gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("idFilial")
		_ = json.NewEncoder(w).Encode([]Employee{{ID: "p1", Name: "Ana", BranchOfficeID: "u1"}})
	})

	employees, err := client.ListEmployees(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, employees, 1)
	assert.Equal(t, "u1", gotQuery)

	_, err = client.ListEmployees(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, gotQuery, "no filter when branch office is empty")
}

func TestFindPatientByCPF(t *testing.T) {
	var gotCPF string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotCPF = r.URL.Query().Get("cpf")
		_ = json.NewEncoder(w).Encode(Patient{ID: "c-9", Name: "Maria", CPF: gotCPF})
	})

	patient, err := client.FindPatientByCPF(context.Background(), "12345678901")
	require.NoError(t, err)
	assert.Equal(t, "c-9", patient.ID)
	assert.Equal(t, "12345678901", gotCPF)
}

func TestLoginPatient(t *testing.T) {
	var gotPayload map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/User/LoginCliente", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		_ = json.NewEncoder(w).Encode(LoginResult{Authenticated: true, AccessToken: "clinic-token"})
	})

	result, err := client.LoginPatient(context.Background(), "12345678901", "s3cret")
	require.NoError(t, err)
	assert.True(t, result.Authenticated)
	assert.Equal(t, "clinic-token", result.AccessToken)
	assert.Equal(t, "12345678901", gotPayload["cpf"])
	assert.Equal(t, "s3cret", gotPayload["password"])
}

func TestErrorKindPerStatusCode(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrNotAuthorized},
		{"forbidden", http.StatusForbidden, ErrNotAuthorized},
		{"not found", http.StatusNotFound, ErrNotFound},
		{"conflict", http.StatusConflict, ErrConflict},
		{"bad request", http.StatusBadRequest, ErrValidation},
		{"unprocessable", http.StatusUnprocessableEntity, ErrValidation},
		{"server error", http.StatusInternalServerError, ErrUnavailable},
		{"bad gateway", http.StatusBadGateway, ErrUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_ = json.NewEncoder(w).Encode(map[string]string{"message": "detalhe do servidor"})
			})

			_, err := client.ListByPatient(context.Background(), "patient-1")
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			assert.Contains(t, err.Error(), "detalhe do servidor")
		})
	}
}

func TestTransportFailureIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	session := Session{AccessToken: "token"}
	client := NewClient(server.URL, session, time.Second, zerolog.Nop())

	_, err := client.ListByPatient(context.Background(), "patient-1")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestWithSessionDoesNotMutateOriginal(t *testing.T) {
	base := NewClient("http://clinic.local", Session{AccessToken: "a"}, time.Second, zerolog.Nop())
	bound := base.WithSession(Session{AccessToken: "b", PatientID: "p-2"})

	assert.Equal(t, "a", base.Session().AccessToken)
	assert.Equal(t, "b", bound.Session().AccessToken)
	assert.Equal(t, "p-2", bound.Session().PatientID)
}

func TestNoAuthorizationHeaderWithoutToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode([]BranchOffice{})
	}))
	t.Cleanup(server.Close)

	client := NewClient(server.URL, Session{}, time.Second, zerolog.Nop())
	_, err := client.ListBranchOffices(context.Background())
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}
