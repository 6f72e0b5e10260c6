package clinic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// Session carries the authenticated clinic credentials on whose behalf the
// client acts. It is injected at construction so the client never reads
// ambient state and can be exercised with a fake session in tests.
type Session struct {
	AccessToken string
	PatientID   string
}

// Client talks to the clinic management API over HTTP+JSON with bearer-token
// authentication.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    Session
	log        zerolog.Logger
}

// NewClient creates a clinic API client. timeout bounds every request; a
// timeout is reported as ErrUnavailable like any other transport failure.
func NewClient(baseURL string, session Session, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		session: session,
		log:     log.With().Str("component", "clinic-client").Logger(),
	}
}

// WithSession returns a copy of the client bound to a different session.
func (c *Client) WithSession(session Session) *Client {
	clone := *c
	clone.session = session
	return &clone
}

// Session returns the session the client is bound to.
func (c *Client) Session() Session {
	return c.session
}

// ListByPatient returns every appointment belonging to the given patient. A
// patient with no appointments yields an empty slice, not an error.
func (c *Client) ListByPatient(ctx context.Context, patientID string) ([]Appointment, error) {
	query := url.Values{"idCliente": {patientID}}
	appointments := []Appointment{}
	if err := c.do(ctx, http.MethodGet, "/Schedule", query, nil, &appointments); err != nil {
		return nil, err
	}
	return appointments, nil
}

// Create persists a new appointment and returns it as stored by the clinic.
func (c *Client) Create(ctx context.Context, req AppointmentRequest) (Appointment, error) {
	var created Appointment
	if err := c.do(ctx, http.MethodPost, "/Schedule", nil, req, &created); err != nil {
		return Appointment{}, err
	}
	return created, nil
}

// Update replaces an existing appointment. The clinic API takes the id in the
// request body.
func (c *Client) Update(ctx context.Context, id string, req AppointmentRequest) (Appointment, error) {
	req.ID = id
	var updated Appointment
	if err := c.do(ctx, http.MethodPut, "/Schedule", nil, req, &updated); err != nil {
		return Appointment{}, err
	}
	return updated, nil
}

// Delete removes an appointment from the clinic store.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/Schedule/"+url.PathEscape(id), nil, nil, nil)
}

// ListBranchOffices returns the clinic locations available for booking.
func (c *Client) ListBranchOffices(ctx context.Context) ([]BranchOffice, error) {
	offices := []BranchOffice{}
	if err := c.do(ctx, http.MethodGet, "/BranchOffice", nil, nil, &offices); err != nil {
		return nil, err
	}
	return offices, nil
}

// ListEmployees returns the clinic professionals, optionally restricted to a
// branch office.
func (c *Client) ListEmployees(ctx context.Context, branchOfficeID string) ([]Employee, error) {
	var query url.Values
	if branchOfficeID != "" {
		query = url.Values{"idFilial": {branchOfficeID}}
	}
	employees := []Employee{}
	if err := c.do(ctx, http.MethodGet, "/Employee", query, nil, &employees); err != nil {
		return nil, err
	}
	return employees, nil
}

// LoginPatient checks patient credentials against the clinic and returns the
// clinic-side tokens. cpf must already be normalized to bare digits.
func (c *Client) LoginPatient(ctx context.Context, cpf, password string) (LoginResult, error) {
	payload := map[string]string{"cpf": cpf, "password": password}
	var result LoginResult
	if err := c.do(ctx, http.MethodPost, "/User/LoginCliente", nil, payload, &result); err != nil {
		return LoginResult{}, err
	}
	return result, nil
}

// FindPatientByCPF resolves the clinic customer record for a CPF.
func (c *Client) FindPatientByCPF(ctx context.Context, cpf string) (Patient, error) {
	query := url.Values{"cpf": {cpf}}
	var patient Patient
	if err := c.do(ctx, http.MethodGet, "/Customer/SearchCustomer", query, nil, &patient); err != nil {
		return Patient{}, err
	}
	return patient, nil
}

// do executes one API call. A 204 response leaves out untouched, which gives
// list endpoints their "no content means empty" semantics.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.session.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.session.AccessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("method", method).Str("path", path).Msg("clinic API unreachable")
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope apiMessage
		raw, _ := io.ReadAll(resp.Body)
		_ = json.Unmarshal(raw, &envelope)
		c.log.Debug().Int("status", resp.StatusCode).Str("method", method).Str("path", path).Msg("clinic API error response")
		return statusError(resp.StatusCode, envelope.Message)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
