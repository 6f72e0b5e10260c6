package handlers

import (
	"errors"
	"net/http"

	"clinic-portal-server/internal/clinic"
	"clinic-portal-server/internal/middleware"
	"clinic-portal-server/internal/models"
	"clinic-portal-server/internal/schedule"
	"clinic-portal-server/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// ReferenceHandler serves the read-only reference entities used by the
// booking form: branch offices and employees. Both come straight from the
// clinic API on the patient's session.
type ReferenceHandler struct {
	DB     *gorm.DB
	Clinic *clinic.Client
	Log    zerolog.Logger
}

// NewReferenceHandler creates a new ReferenceHandler.
func NewReferenceHandler(db *gorm.DB, clinicClient *clinic.Client, log zerolog.Logger) *ReferenceHandler {
	return &ReferenceHandler{DB: db, Clinic: clinicClient, Log: log.With().Str("component", "reference").Logger()}
}

func (h *ReferenceHandler) gatewayFor(c *gin.Context) (*clinic.Client, bool) {
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
	if user.ClinicToken == "" {
		utils.Unauthorized(c, "No active clinic session. Sign in again.")
		return nil, false
	}
	return h.Clinic.WithSession(clinic.Session{
		AccessToken: user.ClinicToken,
		PatientID:   user.ClinicPatientID,
	}), true
}

// GetBranchOffices lists the clinic locations available for booking.
func (h *ReferenceHandler) GetBranchOffices(c *gin.Context) {
	gateway, ok := h.gatewayFor(c)
	if !ok {
		return
	}
	offices, err := gateway.ListBranchOffices(c.Request.Context())
	if err != nil {
		respondClinicError(c, h.Log, err)
		return
	}
	utils.Success(c, "Branch offices fetched successfully", offices)
}

// GetEmployees lists the clinic professionals, optionally filtered by branch
// office via the branchOfficeId query parameter.
func (h *ReferenceHandler) GetEmployees(c *gin.Context) {
	gateway, ok := h.gatewayFor(c)
	if !ok {
		return
	}
	employees, err := gateway.ListEmployees(c.Request.Context(), c.Query("branchOfficeId"))
	if err != nil {
		respondClinicError(c, h.Log, err)
		return
	}
	utils.Success(c, "Employees fetched successfully", employees)
}

// respondClinicError maps a gateway error kind onto the response envelope.
func respondClinicError(c *gin.Context, log zerolog.Logger, err error) {
	message := schedule.UserMessage(err)
	switch {
	case errors.Is(err, clinic.ErrNotAuthorized):
		utils.Unauthorized(c, message)
	case errors.Is(err, clinic.ErrNotFound):
		utils.NotFound(c, message)
	case errors.Is(err, clinic.ErrConflict):
		utils.Error(c, http.StatusConflict, message)
	case errors.Is(err, clinic.ErrValidation):
		utils.BadRequest(c, message)
	default:
		log.Error().Err(err).Msg("clinic request failed")
		utils.Error(c, http.StatusBadGateway, message)
	}
}
