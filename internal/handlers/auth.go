package handlers

import (
	"errors"
	"time"

	"clinic-portal-server/internal/clinic"
	"clinic-portal-server/internal/config"
	"clinic-portal-server/internal/models"
	"clinic-portal-server/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Clinic   *clinic.Client
	Log      zerolog.Logger
	Sessions *CalendarSessions
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config, clinicClient *clinic.Client, sessions *CalendarSessions, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{DB: db, Cfg: cfg, Clinic: clinicClient, Sessions: sessions, Log: log.With().Str("component", "auth").Logger()}
}

// RegisterRequest represents the request body for first-access registration.
// The patient must already exist in the clinic's customer base; registration
// only creates the portal account and links it to the clinic record.
type RegisterRequest struct {
	CPF       string `json:"cpf" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
}

// Register handles first-access portal account creation.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !utils.BindAndValidate(c, &req) {
		return // Error response handled by BindAndValidate
	}

	cpf := utils.NormalizeCPF(req.CPF)
	if !utils.ValidCPF(cpf) {
		utils.BadRequest(c, "Invalid CPF")
		return
	}

	// Check if an account already exists for this CPF or email
	var existingUser models.User
	if err := h.DB.Where("cpf = ? OR email = ?", cpf, req.Email).First(&existingUser).Error; err == nil {
		utils.BadRequest(c, "An account with this CPF or email already exists")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}

	// The CPF must belong to a known clinic customer
	patient, err := h.Clinic.FindPatientByCPF(c.Request.Context(), cpf)
	if err != nil {
		if errors.Is(err, clinic.ErrNotFound) {
			utils.NotFound(c, "No clinic record found for this CPF. Contact the clinic.")
			return
		}
		h.Log.Warn().Err(err).Msg("clinic lookup failed during registration")
		utils.Error(c, 502, "Could not verify the CPF with the clinic. Try again later.")
		return
	}

	user := models.User{
		Email:           req.Email,
		CPF:             cpf,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Role:            models.RolePatient,
		ClinicPatientID: patient.ID,
	}

	if err := user.SetPassword(req.Password); err != nil {
		utils.InternalServerError(c, "Failed to hash password: "+err.Error())
		return
	}

	if err := h.DB.Create(&user).Error; err != nil {
		utils.InternalServerError(c, "Failed to create user: "+err.Error())
		return
	}

	utils.Created(c, "Account registered successfully", user.Sanitize())
}

// LoginRequest represents the request body for patient login.
type LoginRequest struct {
	CPF      string `json:"cpf" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the response body for successful login.
type LoginResponse struct {
	AccessToken  string               `json:"accessToken"`
	RefreshToken string               `json:"refreshToken"`
	User         models.UserSanitized `json:"user"`
}

// Login handles patient login with CPF and password. On success the clinic
// session is bootstrapped as well: the clinic-side access token is stored on
// the account so the schedule gateway can act on the patient's behalf.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	cpf := utils.NormalizeCPF(req.CPF)

	var user models.User
	if err := h.DB.Where("cpf = ?", cpf).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Unauthorized(c, "Invalid CPF or password")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if !user.CheckPassword(req.Password) {
		utils.Unauthorized(c, "Invalid CPF or password")
		return
	}

	// Bootstrap the clinic-side session. Scheduling is impossible without it,
	// so a clinic rejection fails the login rather than degrading silently.
	result, err := h.Clinic.LoginPatient(c.Request.Context(), cpf, req.Password)
	if err != nil || !result.Authenticated {
		if err != nil && !errors.Is(err, clinic.ErrNotAuthorized) {
			h.Log.Warn().Err(err).Msg("clinic login unavailable")
			utils.Error(c, 502, "The clinic system is unavailable. Try again later.")
			return
		}
		utils.Unauthorized(c, "The clinic rejected these credentials")
		return
	}

	user.ClinicToken = result.AccessToken
	if user.ClinicPatientID == "" {
		// Older accounts may predate the clinic link; resolve it now.
		patient, err := h.Clinic.WithSession(clinic.Session{AccessToken: result.AccessToken}).FindPatientByCPF(c.Request.Context(), cpf)
		if err == nil {
			user.ClinicPatientID = patient.ID
		} else {
			h.Log.Warn().Err(err).Msg("could not resolve clinic patient id at login")
		}
	}
	if err := h.DB.Save(&user).Error; err != nil {
		utils.InternalServerError(c, "Failed to store clinic session: "+err.Error())
		return
	}

	accessToken, refreshTokenString, err := utils.GenerateTokens(&user, h.Cfg)
	if err != nil {
		utils.InternalServerError(c, "Failed to generate tokens: "+err.Error())
		return
	}
	// Store refresh token in DB
	refreshToken := models.RefreshToken{
		UserID:    user.ID,
		Token:     refreshTokenString,
		ExpiresAt: time.Now().Add(time.Duration(h.Cfg.JWTRefreshExpirationHours) * time.Hour),
		IsRevoked: false,
	}
	if err := h.DB.Create(&refreshToken).Error; err != nil {
		utils.InternalServerError(c, "Failed to store refresh token: "+err.Error())
		return
	}

	// Set refresh token as HTTP-only cookie
	c.SetCookie(
		"refresh_token",
		refreshTokenString,
		h.Cfg.JWTRefreshExpirationHours*60*60,
		"/",
		"",
		h.Cfg.Environment != "development",
		true,
	)

	utils.Success(c, "Login successful", LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshTokenString,
		User:         user.Sanitize(),
	})
}

// RefreshTokenRequest represents the request body for token refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// RefreshTokenResponse represents the response body for successful token refresh.
type RefreshTokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken handles refreshing an access token using a refresh token.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	// First try to get the refresh token from HTTP-only cookie
	refreshTokenFromCookie, err := c.Cookie("refresh_token")

	// If no cookie, fall back to request body (for backward compatibility)
	if err != nil || refreshTokenFromCookie == "" {
		var req RefreshTokenRequest
		if !utils.BindAndValidate(c, &req) {
			return
		}
		refreshTokenFromCookie = req.RefreshToken
	}

	// Validate the token regardless of source
	claims, err := utils.ValidateToken(refreshTokenFromCookie, h.Cfg.JWTRefreshSecret)
	if err != nil {
		utils.Unauthorized(c, "Invalid refresh token structure or signature: "+err.Error())
		return
	}
	// Check if refresh token is revoked or still valid in DB
	var storedToken models.RefreshToken
	if err := h.DB.Where("token = ? AND user_id = ? AND is_revoked = ? AND expires_at > ?", refreshTokenFromCookie, claims.UserID, false, time.Now()).First(&storedToken).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Unauthorized(c, "Refresh token not found, expired, or revoked")
		} else {
			utils.InternalServerError(c, "Database error checking refresh token: "+err.Error())
		}
		return
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", claims.UserID).Error; err != nil {
		utils.InternalServerError(c, "Failed to find user associated with token: "+err.Error())
		return
	}
	// Implement refresh token rotation for security:
	// 1. Revoke the old refresh token
	storedToken.IsRevoked = true
	h.DB.Save(&storedToken)

	// 2. Generate new tokens
	newAccessToken, newRefreshTokenString, err := utils.GenerateTokens(&user, h.Cfg)
	if err != nil {
		utils.InternalServerError(c, "Failed to generate new tokens: "+err.Error())
		return
	}

	// 3. Store the new refresh token in DB
	newRefreshToken := models.RefreshToken{
		UserID:    user.ID,
		Token:     newRefreshTokenString,
		ExpiresAt: time.Now().Add(time.Duration(h.Cfg.JWTRefreshExpirationHours) * time.Hour),
		IsRevoked: false,
	}
	if err := h.DB.Create(&newRefreshToken).Error; err != nil {
		utils.InternalServerError(c, "Failed to store new refresh token: "+err.Error())
		return
	}

	// 4. Set the new refresh token as HTTP-only cookie
	c.SetCookie(
		"refresh_token",
		newRefreshTokenString,
		h.Cfg.JWTRefreshExpirationHours*60*60,
		"/",
		"",
		h.Cfg.Environment != "development",
		true,
	)

	utils.Success(c, "Access token refreshed successfully", RefreshTokenResponse{
		AccessToken:  newAccessToken,
		RefreshToken: newRefreshTokenString,
	})
}

// LogoutRequest represents the request body for user logout.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// Logout handles user logout and drops the stored clinic session.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	if req.RefreshToken == "" {
		utils.BadRequest(c, "Refresh token is required")
		return
	}

	// Drop the clinic token and the cached calendar session for this user
	if userID, exists := c.Get("userID"); exists {
		h.DB.Model(&models.User{}).Where("id = ?", userID).Update("clinic_token", "")
		if id, ok := userID.(string); ok && h.Sessions != nil {
			h.Sessions.evict(id)
		}
	}

	// Attempt to find the refresh token in the DB
	var storedToken models.RefreshToken
	if err := h.DB.Where("token = ? AND is_revoked = ?", req.RefreshToken, false).First(&storedToken).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Token not found or already revoked, which is acceptable for logout.
			utils.Success(c, "Logout successful (token not found or already invalid).", nil)
		} else {
			utils.InternalServerError(c, "Database error during logout: "+err.Error())
		}
		return
	}

	// Mark the token as revoked and effectively expire it
	storedToken.IsRevoked = true
	storedToken.ExpiresAt = time.Now()
	if err := h.DB.Save(&storedToken).Error; err != nil {
		utils.InternalServerError(c, "Failed to revoke refresh token: "+err.Error())
		return
	}

	// Clear the refresh token cookie
	c.SetCookie(
		"refresh_token",
		"",
		-1,
		"/",
		"",
		h.Cfg.Environment != "development",
		true,
	)

	utils.Success(c, "Logout successful. Refresh token has been invalidated.", nil)
}

// GetProfile handles fetching the currently authenticated user's profile.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "User profile not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	utils.Success(c, "Profile fetched successfully", user.Sanitize())
}

// UpdateProfileRequest represents the request body for updating user profile.
type UpdateProfileRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
	Address     string `json:"address"`
	// Email and CPF cannot be changed here; they identify the clinic link
}

// UpdateProfile handles updating the currently authenticated user's profile.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		utils.NotFound(c, "User not found")
		return
	}

	if req.FirstName != "" {
		user.FirstName = req.FirstName
	}
	if req.LastName != "" {
		user.LastName = req.LastName
	}
	if req.PhoneNumber != "" {
		user.PhoneNumber = req.PhoneNumber
	}
	if req.Address != "" {
		user.Address = req.Address
	}

	if err := h.DB.Save(&user).Error; err != nil {
		utils.InternalServerError(c, "Failed to update profile: "+err.Error())
		return
	}

	utils.Success(c, "Profile updated successfully", user.Sanitize())
}

// RequestPasswordResetRequest represents the request body for starting a
// password reset.
type RequestPasswordResetRequest struct {
	CPF string `json:"cpf" binding:"required"`
}

// RequestPasswordReset creates a short-lived reset token for the account.
// Delivery of the token (e-mail/SMS) is handled outside this service; the
// token is never returned in the response.
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req RequestPasswordResetRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	cpf := utils.NormalizeCPF(req.CPF)

	var user models.User
	if err := h.DB.Where("cpf = ?", cpf).First(&user).Error; err != nil {
		// Do not reveal whether the CPF has an account
		utils.Success(c, "If an account exists for this CPF, reset instructions were sent.", nil)
		return
	}

	token := uuid.New().String()
	expiry := time.Now().Add(1 * time.Hour)
	user.ResetToken = token
	user.ResetTokenExpiry = &expiry
	if err := h.DB.Save(&user).Error; err != nil {
		utils.InternalServerError(c, "Failed to store reset token: "+err.Error())
		return
	}

	h.Log.Info().Str("user", user.ID).Msg("password reset requested")
	utils.Success(c, "If an account exists for this CPF, reset instructions were sent.", nil)
}

// ConfirmPasswordResetRequest represents the request body for completing a
// password reset.
type ConfirmPasswordResetRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

// ConfirmPasswordReset exchanges a valid reset token for a new password.
func (h *AuthHandler) ConfirmPasswordReset(c *gin.Context) {
	var req ConfirmPasswordResetRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var user models.User
	if err := h.DB.Where("reset_token = ?", req.Token).First(&user).Error; err != nil {
		utils.BadRequest(c, "Invalid or expired reset token")
		return
	}
	if user.ResetTokenExpiry == nil || user.ResetTokenExpiry.Before(time.Now()) {
		utils.BadRequest(c, "Invalid or expired reset token")
		return
	}

	if err := user.SetPassword(req.NewPassword); err != nil {
		utils.InternalServerError(c, "Failed to hash password: "+err.Error())
		return
	}
	user.ResetToken = ""
	user.ResetTokenExpiry = nil
	if err := h.DB.Save(&user).Error; err != nil {
		utils.InternalServerError(c, "Failed to update password: "+err.Error())
		return
	}

	utils.Success(c, "Password updated successfully", nil)
}
