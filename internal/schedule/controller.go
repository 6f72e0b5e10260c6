package schedule

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"clinic-portal-server/internal/clinic"
)

// Gateway is the remote appointment store the calendar works against. The
// clinic HTTP client implements it; tests use a fake.
type Gateway interface {
	ListByPatient(ctx context.Context, patientID string) ([]clinic.Appointment, error)
	Create(ctx context.Context, req clinic.AppointmentRequest) (clinic.Appointment, error)
	Update(ctx context.Context, id string, req clinic.AppointmentRequest) (clinic.Appointment, error)
	Delete(ctx context.Context, id string) error
	ListBranchOffices(ctx context.Context) ([]clinic.BranchOffice, error)
	ListEmployees(ctx context.Context, branchOfficeID string) ([]clinic.Employee, error)
}

// Phase is the state of the pending-edit session.
type Phase string

const (
	// PhaseIdle: no form is open.
	PhaseIdle Phase = "idle"
	// PhaseCreating: form open over an empty slot, reviewing a new entry.
	PhaseCreating Phase = "creating"
	// PhaseEditing: form open over an existing appointment.
	PhaseEditing Phase = "editing"
	// PhaseSubmitting: a save or delete is in flight.
	PhaseSubmitting Phase = "submitting"
)

// Controller-level failures, distinct from gateway error kinds.
var (
	// ErrBusy rejects an action while another request is in flight for this
	// session. This is the duplicate-submission guard.
	ErrBusy = errors.New("schedule: request already in flight")
	// ErrReadOnly rejects any mutation of an appointment the patient may not
	// edit, regardless of what the UI rendered.
	ErrReadOnly = errors.New("schedule: appointment is not editable")
	// ErrNoOpenForm rejects form actions while no edit session is open.
	ErrNoOpenForm = errors.New("schedule: no appointment form is open")
	// ErrUnknownEvent rejects opening an event missing from the cache.
	ErrUnknownEvent = errors.New("schedule: event not found in calendar")
)

// Notice is a user-facing outcome message for a completed action.
type Notice struct {
	Level   string `json:"level"` // success, warning, error
	Message string `json:"message"`
}

// Controller orchestrates the calendar interaction loop for one patient
// session. It owns the event cache and the pending-edit state; the reconciler
// and validation engine it calls are pure. All methods are safe for
// concurrent use, but the calendar is logically a single-user surface: the
// mutex serializes actions the way a UI event loop would, and the Submitting
// phase rejects duplicate submissions while a request is in flight.
type Controller struct {
	mu              sync.Mutex
	gateway         Gateway
	patientID       string
	defaultDuration time.Duration
	log             zerolog.Logger

	phase            Phase
	events           []Event
	branchOffices    []clinic.BranchOffice
	employees        []clinic.Employee
	form             FormState
	editable         bool
	confirmingDelete bool
}

// NewController creates a calendar session for the given patient.
// defaultDuration is applied when a zero-length slot is selected.
func NewController(gateway Gateway, patientID string, defaultDuration time.Duration, log zerolog.Logger) *Controller {
	if defaultDuration <= 0 {
		defaultDuration = time.Hour
	}
	return &Controller{
		gateway:         gateway,
		patientID:       patientID,
		defaultDuration: defaultDuration,
		log:             log.With().Str("component", "calendar").Str("patient", patientID).Logger(),
		phase:           PhaseIdle,
	}
}

// LoadOptions fetches the reference data for the booking form selects. Done
// once per calendar session.
func (c *Controller) LoadOptions(ctx context.Context) error {
	offices, err := c.gateway.ListBranchOffices(ctx)
	if err != nil {
		return err
	}
	employees, err := c.gateway.ListEmployees(ctx, "")
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.branchOffices = offices
	c.employees = employees
	c.mu.Unlock()
	return nil
}

// Reload fetches the full appointment set from the gateway and replaces the
// event cache wholesale. The calendar always reflects server truth after a
// mutation; local state is never patched optimistically.
func (c *Controller) Reload(ctx context.Context) error {
	appointments, err := c.gateway.ListByPatient(ctx, c.patientID)
	if err != nil {
		return err
	}

	events := make([]Event, 0, len(appointments))
	for _, appt := range appointments {
		event, err := ToCalendarEvent(appt)
		if err != nil {
			c.log.Warn().Err(err).Str("appointment", appt.ID).Msg("skipping appointment with malformed timestamps")
			continue
		}
		events = append(events, event)
	}

	c.mu.Lock()
	c.events = events
	c.mu.Unlock()
	return nil
}

// Events returns a copy of the current calendar events.
func (c *Controller) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// BranchOffices returns the cached clinic locations.
func (c *Controller) BranchOffices() []clinic.BranchOffice {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]clinic.BranchOffice, len(c.branchOffices))
	copy(out, c.branchOffices)
	return out
}

// EmployeesForBranch returns the cached professionals affiliated with the
// given branch office; all of them when the id is empty.
func (c *Controller) EmployeesForBranch(branchOfficeID string) []clinic.Employee {
	c.mu.Lock()
	defer c.mu.Unlock()
	return FilterByBranchOffice(c.employees, branchOfficeID)
}

// Phase returns the current pending-edit phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Form returns the in-progress form state.
func (c *Controller) Form() FormState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// Editable reports whether the open form may be modified by the patient.
func (c *Controller) Editable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editable
}

// ConfirmingDelete reports whether a delete confirmation prompt is open.
func (c *Controller) ConfirmingDelete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.confirmingDelete
}

// SelectSlot opens the form over an empty calendar slot. A zero-length or
// inverted range gets the default appointment duration. The authenticated
// patient and the default status are pre-filled.
func (c *Controller) SelectSlot(start, end time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseSubmitting {
		return ErrBusy
	}

	if !end.After(start) {
		end = start.Add(c.defaultDuration)
	}

	startDate, startClock := SplitInstant(start)
	endDate, endClock := SplitInstant(end)
	c.form = FormState{
		StartDate: startDate,
		EndDate:   endDate,
		StartTime: startClock,
		EndTime:   endClock,
		Status:    StatusAConfirmar,
		PatientID: c.patientID,
	}
	c.editable = true
	c.confirmingDelete = false
	c.phase = PhaseCreating
	return nil
}

// ClickEvent opens the form over an existing appointment, loaded from the
// event cache without another fetch. Whether the form is editable is decided
// here, not by UI styling: a non-editable session rejects Save and delete.
func (c *Controller) ClickEvent(eventID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseSubmitting {
		return ErrBusy
	}

	var appt clinic.Appointment
	found := false
	for _, event := range c.events {
		if event.ID == eventID {
			appt = event.Appointment
			found = true
			break
		}
	}
	if !found {
		return ErrUnknownEvent
	}

	form, err := ToFormState(appt)
	if err != nil {
		return err
	}
	form.PatientID = c.patientID

	c.form = form
	c.editable = CanPatientEdit(Status(appt.Status))
	c.confirmingDelete = false
	c.phase = PhaseEditing
	return nil
}

// UpdateForm applies the user's edits to the open form. The identity fields
// (id, patient) are owned by the session and cannot be changed. When the
// branch office no longer contains the selected employee, the employee
// selection is cleared immediately.
func (c *Controller) UpdateForm(form FormState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.phase {
	case PhaseCreating, PhaseEditing:
	case PhaseSubmitting:
		return ErrBusy
	default:
		return ErrNoOpenForm
	}
	if !c.editable {
		return ErrReadOnly
	}

	form.ID = c.form.ID
	form.PatientID = c.patientID
	if SyncEmployeeSelection(&form, c.employees) {
		c.log.Debug().Str("branchOffice", form.BranchOfficeID).Msg("cleared employee selection outside branch office")
	}
	c.form = form
	return nil
}

// Save validates the open form and submits it through the gateway: create
// for a new slot, update when the event pre-existed. On success the edit
// session closes and the full appointment set is reloaded, strictly after
// the mutation resolves. On failure the form stays open with the edits
// retained.
func (c *Controller) Save(ctx context.Context) (Notice, error) {
	c.mu.Lock()
	var resumePhase Phase
	switch c.phase {
	case PhaseCreating, PhaseEditing:
		resumePhase = c.phase
	case PhaseSubmitting:
		c.mu.Unlock()
		return Notice{}, ErrBusy
	default:
		c.mu.Unlock()
		return Notice{}, ErrNoOpenForm
	}
	if !c.editable {
		c.mu.Unlock()
		return Notice{}, ErrReadOnly
	}

	form := c.form
	if err := ValidateForm(form); err != nil {
		c.mu.Unlock()
		return Notice{}, err
	}

	req := ToRequest(form)
	req.PatientID = c.patientID
	c.phase = PhaseSubmitting
	c.mu.Unlock()

	updating := form.ID != ""
	var err error
	if updating {
		_, err = c.gateway.Update(ctx, form.ID, req)
	} else {
		_, err = c.gateway.Create(ctx, req)
	}

	if err != nil {
		c.mu.Lock()
		c.phase = resumePhase
		c.mu.Unlock()
		if errors.Is(err, clinic.ErrNotFound) {
			// The appointment vanished server-side; refresh so the stale
			// entry disappears from the calendar.
			if reloadErr := c.Reload(ctx); reloadErr != nil {
				c.log.Warn().Err(reloadErr).Msg("reload after not-found failed")
			}
		}
		c.log.Info().Err(err).Bool("updating", updating).Msg("appointment save rejected")
		return Notice{}, err
	}

	c.mu.Lock()
	c.phase = PhaseIdle
	c.form = FormState{}
	c.editable = false
	c.confirmingDelete = false
	c.mu.Unlock()

	if err := c.Reload(ctx); err != nil {
		c.log.Warn().Err(err).Msg("reload after save failed")
	}

	if updating {
		return Notice{Level: "success", Message: "Agendamento atualizado com sucesso!"}, nil
	}
	return Notice{Level: "success", Message: "Agendamento criado com sucesso!"}, nil
}

// RequestDelete opens the delete confirmation prompt. Deleting requires an
// explicit second step; nothing is sent to the gateway yet.
func (c *Controller) RequestDelete() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.phase {
	case PhaseEditing:
	case PhaseSubmitting:
		return ErrBusy
	default:
		return ErrNoOpenForm
	}
	if !c.editable {
		return ErrReadOnly
	}
	if c.form.ID == "" {
		return ErrNoOpenForm
	}
	c.confirmingDelete = true
	return nil
}

// CancelDelete dismisses the confirmation prompt.
func (c *Controller) CancelDelete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confirmingDelete = false
}

// ConfirmDelete executes the delete previously requested. On success the
// edit session closes and the appointment set is reloaded.
func (c *Controller) ConfirmDelete(ctx context.Context) (Notice, error) {
	c.mu.Lock()
	if c.phase == PhaseSubmitting {
		c.mu.Unlock()
		return Notice{}, ErrBusy
	}
	if !c.confirmingDelete || c.form.ID == "" {
		c.mu.Unlock()
		return Notice{}, ErrNoOpenForm
	}
	id := c.form.ID
	resumePhase := c.phase
	c.phase = PhaseSubmitting
	c.mu.Unlock()

	if err := c.gateway.Delete(ctx, id); err != nil {
		c.mu.Lock()
		c.phase = resumePhase
		c.mu.Unlock()
		if errors.Is(err, clinic.ErrNotFound) {
			if reloadErr := c.Reload(ctx); reloadErr != nil {
				c.log.Warn().Err(reloadErr).Msg("reload after not-found failed")
			}
		}
		c.log.Info().Err(err).Str("appointment", id).Msg("appointment delete rejected")
		return Notice{}, err
	}

	c.mu.Lock()
	c.phase = PhaseIdle
	c.form = FormState{}
	c.editable = false
	c.confirmingDelete = false
	c.mu.Unlock()

	if err := c.Reload(ctx); err != nil {
		c.log.Warn().Err(err).Msg("reload after delete failed")
	}
	return Notice{Level: "success", Message: "Agendamento excluído com sucesso!"}, nil
}

// Close abandons the pending edit and returns to idle. Discarding an
// in-flight request's result is allowed; the late response is simply ignored
// because the session state has already moved on.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = PhaseIdle
	c.form = FormState{}
	c.editable = false
	c.confirmingDelete = false
}

// UserMessage translates an error from Save, ConfirmDelete or Reload into
// the single human-readable message shown for the action.
func UserMessage(err error) string {
	var validation *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &validation):
		return validation.Message
	case errors.Is(err, clinic.ErrConflict):
		return "Conflito de horário. Já existe um agendamento neste horário."
	case errors.Is(err, clinic.ErrNotFound):
		return "Agendamento não encontrado."
	case errors.Is(err, clinic.ErrNotAuthorized):
		return "Sessão expirada. Faça login novamente."
	case errors.Is(err, clinic.ErrValidation):
		return "Dados do agendamento inválidos."
	case errors.Is(err, ErrReadOnly):
		return "Este agendamento não pode ser editado no momento."
	case errors.Is(err, ErrBusy):
		return "Aguarde, a solicitação anterior ainda está em andamento."
	default:
		return "Erro ao conectar com o servidor. Tente novamente."
	}
}
