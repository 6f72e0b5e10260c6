package schedule

import (
	"fmt"
	"time"

	"clinic-portal-server/internal/clinic"
)

// Wire layouts used by the clinic API. Instants carry no zone; the clinic
// operates in a single local time zone and sub-second precision is not
// modeled.
const (
	DateLayout    = "2006-01-02"
	TimeLayout    = "15:04"
	InstantLayout = "2006-01-02T15:04:05"
)

// Event is the calendar-displayable projection of an appointment. The full
// remote record rides along so an edit can be opened without another fetch.
type Event struct {
	ID              string             `json:"id"`
	Title           string             `json:"title"`
	Start           time.Time          `json:"start"`
	End             time.Time          `json:"end"`
	AllDay          bool               `json:"allDay"`
	BackgroundColor string             `json:"backgroundColor"`
	BorderColor     string             `json:"borderColor"`
	StatusLabel     string             `json:"statusLabel"`
	Appointment     clinic.Appointment `json:"appointment"`
}

// FormState is the edit-surface representation of an appointment. The edit
// surface manipulates dates and times-of-day independently, so the combined
// instants are split into separate fields here and recombined on submit.
type FormState struct {
	ID             string `json:"id,omitempty"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	StartDate      string `json:"startDate"` // YYYY-MM-DD
	EndDate        string `json:"endDate"`   // YYYY-MM-DD
	StartTime      string `json:"startTime"` // HH:MM
	EndTime        string `json:"endTime"`   // HH:MM
	AllDay         bool   `json:"allDay"`
	Status         Status `json:"status"`
	BranchOfficeID string `json:"branchOfficeId"`
	EmployeeID     string `json:"employeeId"`
	PatientID      string `json:"patientId"`
	Location       string `json:"location"`
	Notes          string `json:"notes"`
}

// ParseInstant parses a combined clinic API timestamp.
func ParseInstant(value string) (time.Time, error) {
	t, err := time.ParseInLocation(InstantLayout, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid instant %q: %w", value, err)
	}
	return t, nil
}

// SplitInstant splits an instant into its date and time-of-day strings.
func SplitInstant(t time.Time) (date, clock string) {
	return t.Format(DateLayout), t.Format(TimeLayout)
}

// CombineInstant is the inverse of SplitInstant: date + "T" + clock + ":00".
// Splitting and recombining reproduces the original instant to the second.
func CombineInstant(date, clock string) string {
	return date + "T" + clock + ":00"
}

// ToCalendarEvent maps a remote appointment onto a calendar event. Unknown
// status values render with the fallback color and label; only malformed
// timestamps are an error.
func ToCalendarEvent(appt clinic.Appointment) (Event, error) {
	start, err := ParseInstant(appt.StartAt)
	if err != nil {
		return Event{}, err
	}
	end, err := ParseInstant(appt.EndAt)
	if err != nil {
		return Event{}, err
	}

	status := Status(appt.Status)
	color := status.Color()
	return Event{
		ID:              appt.ID,
		Title:           appt.Title,
		Start:           start,
		End:             end,
		AllDay:          appt.AllDay,
		BackgroundColor: color,
		BorderColor:     color,
		StatusLabel:     status.Label(),
		Appointment:     appt,
	}, nil
}

// ToFormState splits an appointment into the edit-surface representation.
func ToFormState(appt clinic.Appointment) (FormState, error) {
	start, err := ParseInstant(appt.StartAt)
	if err != nil {
		return FormState{}, err
	}
	end, err := ParseInstant(appt.EndAt)
	if err != nil {
		return FormState{}, err
	}

	startDate, startClock := SplitInstant(start)
	endDate, endClock := SplitInstant(end)
	return FormState{
		ID:             appt.ID,
		Title:          appt.Title,
		Description:    appt.Description,
		StartDate:      startDate,
		EndDate:        endDate,
		StartTime:      startClock,
		EndTime:        endClock,
		AllDay:         appt.AllDay,
		Status:         Status(appt.Status),
		BranchOfficeID: appt.BranchOfficeID,
		EmployeeID:     appt.EmployeeID,
		PatientID:      appt.PatientID,
		Location:       appt.Location,
		Notes:          appt.Notes,
	}, nil
}

// ToRequest recombines the form's date and time-of-day fields into the
// request representation the gateway sends to the clinic.
func ToRequest(form FormState) clinic.AppointmentRequest {
	return clinic.AppointmentRequest{
		ID:             form.ID,
		Title:          form.Title,
		Description:    form.Description,
		StartAt:        CombineInstant(form.StartDate, form.StartTime),
		EndAt:          CombineInstant(form.EndDate, form.EndTime),
		AllDay:         form.AllDay,
		Status:         int(form.Status),
		BranchOfficeID: form.BranchOfficeID,
		EmployeeID:     form.EmployeeID,
		PatientID:      form.PatientID,
		Location:       form.Location,
		Notes:          form.Notes,
	}
}
