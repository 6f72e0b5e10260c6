package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"clinic-portal-server/internal/clinic"
	"clinic-portal-server/internal/config"
	"clinic-portal-server/internal/middleware"
	"clinic-portal-server/internal/models"
	"clinic-portal-server/internal/schedule"
	"clinic-portal-server/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// CalendarHandler exposes the calendar interaction loop over JSON. Each
// authenticated patient gets one schedule.Controller, kept for the lifetime
// of their clinic session; the handler itself is thin glue.
type CalendarHandler struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Clinic   *clinic.Client
	Log      zerolog.Logger
	Sessions *CalendarSessions
}

// NewCalendarHandler creates a new CalendarHandler.
func NewCalendarHandler(db *gorm.DB, cfg *config.Config, clinicClient *clinic.Client, sessions *CalendarSessions, log zerolog.Logger) *CalendarHandler {
	return &CalendarHandler{
		DB:       db,
		Cfg:      cfg,
		Clinic:   clinicClient,
		Log:      log.With().Str("component", "calendar-handler").Logger(),
		Sessions: sessions,
	}
}

// acquire returns the cached controller for the user when the clinic token
// still matches, or builds and initializes a fresh one. The controller is
// cached only after its first load succeeded, so a clinic outage on the
// first calendar request stays retryable instead of pinning an empty
// session.
func (h *CalendarHandler) acquire(ctx context.Context, userID, clinicToken, patientID string) (*schedule.Controller, error) {
	if controller, ok := h.Sessions.lookup(userID, clinicToken); ok {
		return controller, nil
	}

	gateway := h.Clinic.WithSession(clinic.Session{
		AccessToken: clinicToken,
		PatientID:   patientID,
	})
	controller := schedule.NewController(
		gateway,
		patientID,
		time.Duration(h.Cfg.Clinic.DefaultAppointmentMinutes)*time.Minute,
		h.Log,
	)
	if err := controller.LoadOptions(ctx); err != nil {
		return nil, err
	}
	if err := controller.Reload(ctx); err != nil {
		return nil, err
	}

	h.Sessions.store(userID, clinicToken, controller)
	return controller, nil
}

// controllerFor resolves the authenticated user and returns their calendar
// controller. The controller is rebuilt whenever the stored clinic token
// changes (a fresh login invalidates the old gateway binding).
func (h *CalendarHandler) controllerFor(c *gin.Context) (*schedule.Controller, bool) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return nil, false
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		utils.Unauthorized(c, "User not found")
		return nil, false
	}
	if user.ClinicPatientID == "" || user.ClinicToken == "" {
		utils.Unauthorized(c, "No active clinic session. Sign in again.")
		return nil, false
	}

	controller, err := h.acquire(c.Request.Context(), userID, user.ClinicToken, user.ClinicPatientID)
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	return controller, true
}

// CalendarView is the full view state of the calendar session.
type CalendarView struct {
	Phase            schedule.Phase        `json:"phase"`
	Events           []schedule.Event      `json:"events"`
	Form             schedule.FormState    `json:"form"`
	Editable         bool                  `json:"editable"`
	ConfirmingDelete bool                  `json:"confirmingDelete"`
	StatusOptions    []StatusOption        `json:"statusOptions"`
	BranchOffices    []clinic.BranchOffice `json:"branchOffices"`
}

// StatusOption is one patient-selectable status for the booking form.
type StatusOption struct {
	Value schedule.Status `json:"value"`
	Label string          `json:"label"`
	Color string          `json:"color"`
}

func patientStatusOptions() []StatusOption {
	statuses := schedule.PatientAvailableStatuses()
	options := make([]StatusOption, len(statuses))
	for i, s := range statuses {
		options[i] = StatusOption{Value: s, Label: s.Label(), Color: s.Color()}
	}
	return options
}

func (h *CalendarHandler) view(controller *schedule.Controller) CalendarView {
	return CalendarView{
		Phase:            controller.Phase(),
		Events:           controller.Events(),
		Form:             controller.Form(),
		Editable:         controller.Editable(),
		ConfirmingDelete: controller.ConfirmingDelete(),
		StatusOptions:    patientStatusOptions(),
		BranchOffices:    controller.BranchOffices(),
	}
}

// GetCalendar returns the current calendar view state.
func (h *CalendarHandler) GetCalendar(c *gin.Context) {
	controller, ok := h.controllerFor(c)
	if !ok {
		return
	}
	utils.Success(c, "Calendar fetched successfully", h.view(controller))
}

// RefreshCalendar re-fetches the appointment set from the clinic.
func (h *CalendarHandler) RefreshCalendar(c *gin.Context) {
	controller, ok := h.controllerFor(c)
	if !ok {
		return
	}
	if err := controller.Reload(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	utils.Success(c, "Calendar refreshed", h.view(controller))
}

// SelectSlotRequest represents a calendar range selection.
type SelectSlotRequest struct {
	Start string `json:"start" binding:"required"` // 2006-01-02T15:04:05
	End   string `json:"end"`
}

// SelectSlot opens the booking form over an empty slot.
func (h *CalendarHandler) SelectSlot(c *gin.Context) {
	controller, ok := h.controllerFor(c)
	if !ok {
		return
	}

	var req SelectSlotRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	start, err := schedule.ParseInstant(req.Start)
	if err != nil {
		utils.BadRequest(c, "Invalid start instant: "+err.Error())
		return
	}
	end := start
	if req.End != "" {
		end, err = schedule.ParseInstant(req.End)
		if err != nil {
			utils.BadRequest(c, "Invalid end instant: "+err.Error())
			return
		}
	}

	if err := controller.SelectSlot(start, end); err != nil {
		h.respondError(c, err)
		return
	}
	utils.Success(c, "Slot selected", h.view(controller))
}

// OpenEvent opens the edit form over an existing appointment.
func (h *CalendarHandler) OpenEvent(c *gin.Context) {
	controller, ok := h.controllerFor(c)
	if !ok {
		return
	}
	if err := controller.ClickEvent(c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	utils.Success(c, "Appointment opened", h.view(controller))
}

// UpdateForm applies the user's edits to the open form.
func (h *CalendarHandler) UpdateForm(c *gin.Context) {
	controller, ok := h.controllerFor(c)
	if !ok {
		return
	}

	var form schedule.FormState
	if err := c.ShouldBindJSON(&form); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	if err := controller.UpdateForm(form); err != nil {
		h.respondError(c, err)
		return
	}
	utils.Success(c, "Form updated", h.view(controller))
}

// Save submits the open form: create for a new slot, update for an existing
// appointment.
func (h *CalendarHandler) Save(c *gin.Context) {
	controller, ok := h.controllerFor(c)
	if !ok {
		return
	}
	notice, err := controller.Save(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.Success(c, notice.Message, h.view(controller))
}

// RequestDelete opens the delete confirmation prompt.
func (h *CalendarHandler) RequestDelete(c *gin.Context) {
	controller, ok := h.controllerFor(c)
	if !ok {
		return
	}
	if err := controller.RequestDelete(); err != nil {
		h.respondError(c, err)
		return
	}
	utils.Success(c, "Delete confirmation required", h.view(controller))
}

// ConfirmDelete executes the delete previously requested.
func (h *CalendarHandler) ConfirmDelete(c *gin.Context) {
	controller, ok := h.controllerFor(c)
	if !ok {
		return
	}
	notice, err := controller.ConfirmDelete(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.Success(c, notice.Message, h.view(controller))
}

// CancelDelete dismisses the delete confirmation prompt.
func (h *CalendarHandler) CancelDelete(c *gin.Context) {
	controller, ok := h.controllerFor(c)
	if !ok {
		return
	}
	controller.CancelDelete()
	utils.Success(c, "Delete cancelled", h.view(controller))
}

// CloseForm abandons the pending edit.
func (h *CalendarHandler) CloseForm(c *gin.Context) {
	controller, ok := h.controllerFor(c)
	if !ok {
		return
	}
	controller.Close()
	utils.Success(c, "Form closed", h.view(controller))
}

// GetUpcoming returns the patient's future appointments, soonest first.
func (h *CalendarHandler) GetUpcoming(c *gin.Context) {
	h.listFiltered(c, schedule.Upcoming)
}

// GetHistory returns the patient's past appointments, most recent first.
func (h *CalendarHandler) GetHistory(c *gin.Context) {
	h.listFiltered(c, schedule.History)
}

func (h *CalendarHandler) listFiltered(c *gin.Context, filter func([]clinic.Appointment, time.Time) []clinic.Appointment) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		utils.Unauthorized(c, "User not found")
		return
	}
	if user.ClinicPatientID == "" || user.ClinicToken == "" {
		utils.Unauthorized(c, "No active clinic session. Sign in again.")
		return
	}

	gateway := h.Clinic.WithSession(clinic.Session{
		AccessToken: user.ClinicToken,
		PatientID:   user.ClinicPatientID,
	})
	appointments, err := gateway.ListByPatient(c.Request.Context(), user.ClinicPatientID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.Success(c, "Appointments fetched successfully", filter(appointments, time.Now()))
}

// respondError translates schedule and clinic errors into the response
// envelope, keeping one human-readable message per failed action.
func (h *CalendarHandler) respondError(c *gin.Context, err error) {
	message := schedule.UserMessage(err)

	var validation *schedule.ValidationError
	switch {
	case errors.As(err, &validation):
		utils.BadRequest(c, message)
	case errors.Is(err, schedule.ErrReadOnly):
		utils.Forbidden(c, message)
	case errors.Is(err, schedule.ErrBusy):
		utils.Error(c, http.StatusConflict, message)
	case errors.Is(err, schedule.ErrNoOpenForm), errors.Is(err, schedule.ErrUnknownEvent):
		utils.BadRequest(c, err.Error())
	case errors.Is(err, clinic.ErrConflict):
		utils.Error(c, http.StatusConflict, message)
	case errors.Is(err, clinic.ErrNotFound):
		utils.NotFound(c, message)
	case errors.Is(err, clinic.ErrNotAuthorized):
		utils.Unauthorized(c, message)
	case errors.Is(err, clinic.ErrValidation):
		utils.BadRequest(c, message)
	default:
		h.Log.Error().Err(err).Msg("calendar action failed")
		utils.Error(c, http.StatusBadGateway, message)
	}
}
