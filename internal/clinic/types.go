package clinic

// Appointment is the remote representation of a scheduled patient/professional
// encounter. Timestamps travel as combined ISO instants without a zone
// ("2006-01-02T15:04:05"); parsing them is the schedule reconciler's job.
type Appointment struct {
	ID             string `json:"id"`
	Title          string `json:"titulo"`
	Description    string `json:"descricao"`
	StartAt        string `json:"dataInicio"`
	EndAt          string `json:"dataFim"`
	AllDay         bool   `json:"diaTodo"`
	Status         int    `json:"status"`
	BranchOfficeID string `json:"filialId"`
	EmployeeID     string `json:"idFuncionario"`
	PatientID      string `json:"idCliente"`
	Location       string `json:"localizacao"`
	Notes          string `json:"observacao"`
	RegisteredAt   string `json:"dataCadastro,omitempty"`
}

// AppointmentRequest is the payload for creating or updating an appointment.
// ID is empty on create and set on update.
type AppointmentRequest struct {
	ID             string `json:"id,omitempty"`
	Title          string `json:"titulo"`
	Description    string `json:"descricao"`
	StartAt        string `json:"dataInicio"`
	EndAt          string `json:"dataFim"`
	AllDay         bool   `json:"diaTodo"`
	Status         int    `json:"status"`
	BranchOfficeID string `json:"filialId"`
	EmployeeID     string `json:"idFuncionario"`
	PatientID      string `json:"idCliente"`
	Location       string `json:"localizacao,omitempty"`
	Notes          string `json:"observacao,omitempty"`
}

// BranchOffice is a physical clinic location. Read-only reference data.
type BranchOffice struct {
	ID           string `json:"id"`
	Name         string `json:"nomeFilial"`
	Note         string `json:"observacao,omitempty"`
	Headquarters bool   `json:"matriz"`
	Active       bool   `json:"ativo"`
}

// Employee is a clinic professional assignable to appointments. Each employee
// is affiliated with exactly one branch office.
type Employee struct {
	ID             string `json:"id"`
	Name           string `json:"nome"`
	Role           string `json:"cargo,omitempty"`
	Crefito        string `json:"crefito,omitempty"`
	BranchOfficeID string `json:"filialId"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"telefone,omitempty"`
	Active         bool   `json:"ativo"`
}

// Patient is the clinic's record for a portal customer.
type Patient struct {
	ID          string `json:"id"`
	Name        string `json:"nome"`
	CPF         string `json:"cpf"`
	Email       string `json:"email"`
	Phone       string `json:"telefone"`
	DateOfBirth string `json:"dataNascimento,omitempty"`
	Status      string `json:"status,omitempty"`
}

// LoginResult is the clinic's answer to a patient credential check.
type LoginResult struct {
	Authenticated bool   `json:"authenticated"`
	AccessToken   string `json:"accessToken"`
	RefreshToken  string `json:"refreshToken"`
	Message       string `json:"message,omitempty"`
}
