package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-portal-server/internal/clinic"
)

func validForm() FormState {
	return FormState{
		Title:          "Consulta",
		StartDate:      "2025-11-10",
		EndDate:        "2025-11-10",
		StartTime:      "09:00",
		EndTime:        "10:00",
		Status:         StatusAConfirmar,
		BranchOfficeID: "u1",
		EmployeeID:     "p1",
		PatientID:      "patient-1",
	}
}

func TestValidateForm(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*FormState)
		field   string
	}{
		{"missing title", func(f *FormState) { f.Title = "" }, "title"},
		{"missing date", func(f *FormState) { f.StartDate = "" }, "title"},
		{"missing branch office", func(f *FormState) { f.BranchOfficeID = "" }, "branchOfficeId"},
		{"missing employee", func(f *FormState) { f.EmployeeID = "" }, "employeeId"},
		{"staff-only status", func(f *FormState) { f.Status = StatusEncaixe }, "status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validForm()
			tt.mutate(&form)
			err := ValidateForm(form)
			require.Error(t, err)
			var validation *ValidationError
			require.ErrorAs(t, err, &validation)
			assert.Equal(t, tt.field, validation.Field)
			assert.NotEmpty(t, validation.Message)
		})
	}

	assert.NoError(t, ValidateForm(validForm()))
}

func employeesFixture() []clinic.Employee {
	return []clinic.Employee{
		{ID: "p1", Name: "Ana", BranchOfficeID: "u1"},
		{ID: "p2", Name: "Bruno", BranchOfficeID: "u1"},
		{ID: "p3", Name: "Carla", BranchOfficeID: "u2"},
	}
}

func TestFilterByBranchOffice(t *testing.T) {
	employees := employeesFixture()

	filtered := FilterByBranchOffice(employees, "u1")
	require.Len(t, filtered, 2)
	assert.Equal(t, "p1", filtered[0].ID)
	assert.Equal(t, "p2", filtered[1].ID)

	assert.Empty(t, FilterByBranchOffice(employees, "u9"))
	assert.Len(t, FilterByBranchOffice(employees, ""), 3)
}

func TestSyncEmployeeSelectionClearsStalePairing(t *testing.T) {
	form := validForm()
	form.BranchOfficeID = "u2"
	form.EmployeeID = "p1" // belongs to u1

	cleared := SyncEmployeeSelection(&form, employeesFixture())
	assert.True(t, cleared)
	assert.Empty(t, form.EmployeeID)
}

func TestSyncEmployeeSelectionKeepsValidPairing(t *testing.T) {
	form := validForm()

	cleared := SyncEmployeeSelection(&form, employeesFixture())
	assert.False(t, cleared)
	assert.Equal(t, "p1", form.EmployeeID)
}
