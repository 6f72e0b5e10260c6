package schedule

import "clinic-portal-server/internal/clinic"

// ValidationError is a local, pre-submission failure. It is recoverable by
// the user and never reaches the network.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateForm runs the pre-submission checks on an appointment form. The
// first failing check wins; all messages are user-facing warnings.
func ValidateForm(form FormState) error {
	if form.Title == "" || form.StartDate == "" {
		return &ValidationError{Field: "title", Message: "Preencha o título e a data."}
	}
	if form.BranchOfficeID == "" {
		return &ValidationError{Field: "branchOfficeId", Message: "Selecione uma unidade."}
	}
	if form.EmployeeID == "" {
		return &ValidationError{Field: "employeeId", Message: "Selecione um profissional."}
	}
	if !CanPatientUseStatus(form.Status) {
		return &ValidationError{Field: "status", Message: "Status não permitido para o paciente."}
	}
	return nil
}

// FilterByBranchOffice returns the employees affiliated with the given branch
// office. An empty branch office id means no filter.
func FilterByBranchOffice(employees []clinic.Employee, branchOfficeID string) []clinic.Employee {
	if branchOfficeID == "" {
		return employees
	}
	filtered := make([]clinic.Employee, 0, len(employees))
	for _, emp := range employees {
		if emp.BranchOfficeID == branchOfficeID {
			filtered = append(filtered, emp)
		}
	}
	return filtered
}

// SyncEmployeeSelection clears the form's employee selection when it no
// longer belongs to the selected branch office, so a stale pairing can never
// reach submission. Reports whether the selection was cleared.
func SyncEmployeeSelection(form *FormState, employees []clinic.Employee) bool {
	if form.EmployeeID == "" || form.BranchOfficeID == "" {
		return false
	}
	for _, emp := range FilterByBranchOffice(employees, form.BranchOfficeID) {
		if emp.ID == form.EmployeeID {
			return false
		}
	}
	form.EmployeeID = ""
	return true
}
