package schedule

// Status represents the lifecycle state of an appointment as encoded by the
// clinic management API. The numeric values are part of the wire contract and
// must not be reordered.
type Status int

const (
	StatusAConfirmar Status = iota
	StatusConfirmadoPeloPaciente
	StatusCanceladoPeloPaciente
	StatusConcluido
	StatusConfirmadoPelaSaude
	StatusAusente
	StatusEmAndamento
	StatusCanceladoPelaClinica
	StatusReagendamento
	StatusEncaixe
	StatusNaoCompareceu
	StatusAguardandoConfirmacao
)

// DefaultStatusColor is used when the server reports a status this client does
// not know yet. Rendering must degrade gracefully instead of failing.
const DefaultStatusColor = "#3b82f6"

// UnknownStatusLabel is the label shown for statuses outside the known set.
const UnknownStatusLabel = "Desconhecido"

var statusLabels = map[Status]string{
	StatusAConfirmar:             "A Confirmar",
	StatusConfirmadoPeloPaciente: "Confirmado pelo Paciente",
	StatusCanceladoPeloPaciente:  "Cancelado pelo Paciente",
	StatusConcluido:              "Concluído",
	StatusConfirmadoPelaSaude:    "Confirmado pela Clínica",
	StatusAusente:                "Ausente",
	StatusEmAndamento:            "Em Andamento",
	StatusCanceladoPelaClinica:   "Cancelado pela Clínica",
	StatusReagendamento:          "Reagendamento",
	StatusEncaixe:                "Encaixe",
	StatusNaoCompareceu:          "Não Compareceu",
	StatusAguardandoConfirmacao:  "Aguardando Confirmação",
}

var statusColors = map[Status]string{
	StatusAConfirmar:             "#eab308",
	StatusConfirmadoPeloPaciente: "#22c55e",
	StatusCanceladoPeloPaciente:  "#ef4444",
	StatusConcluido:              "#3b82f6",
	StatusConfirmadoPelaSaude:    "#14b8a6",
	StatusAusente:                "#6b7280",
	StatusEmAndamento:            "#a855f7",
	StatusCanceladoPelaClinica:   "#f97316",
	StatusReagendamento:          "#6366f1",
	StatusEncaixe:                "#ec4899",
	StatusNaoCompareceu:          "#64748b",
	StatusAguardandoConfirmacao:  "#f59e0b",
}

// Valid reports whether s is one of the twelve statuses defined by the clinic.
func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the human-readable label for s. Unknown statuses get a
// generic label rather than an error so future server-side statuses still
// render.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return UnknownStatusLabel
}

// Color returns the display color (hex) for s, falling back to
// DefaultStatusColor for unknown values.
func (s Status) Color() string {
	if color, ok := statusColors[s]; ok {
		return color
	}
	return DefaultStatusColor
}

// PatientAvailableStatuses returns the statuses a patient may set when
// creating or editing an appointment. The portal never lets a patient pick
// any of the staff-only statuses.
func PatientAvailableStatuses() []Status {
	return []Status{
		StatusAConfirmar,
		StatusConfirmadoPeloPaciente,
		StatusCanceladoPeloPaciente,
	}
}

// CanPatientEdit reports whether a patient may still modify an appointment in
// status s. Every permission check in the portal (form enabling, save, delete)
// goes through this predicate so the rules cannot drift between flows.
func CanPatientEdit(s Status) bool {
	return s == StatusAConfirmar || s == StatusConfirmadoPeloPaciente
}

// CanPatientUseStatus reports whether a patient is allowed to submit an
// appointment carrying status s.
func CanPatientUseStatus(s Status) bool {
	for _, allowed := range PatientAvailableStatuses() {
		if s == allowed {
			return true
		}
	}
	return false
}
