package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"clinic-scheduler-server/internal/middleware"
	"clinic-scheduler-server/internal/models"
	"clinic-scheduler-server/internal/utils"
)

// ConsultationHandler handles consultation and prescription requests.
// Consultations are created exclusively through the attend transition
// (see AppointmentHandler.MarkAttended); this handler reads and amends.
type ConsultationHandler struct {
	DB *gorm.DB
}

// NewConsultationHandler creates a new ConsultationHandler.
func NewConsultationHandler(db *gorm.DB) *ConsultationHandler {
	return &ConsultationHandler{DB: db}
}

// GetConsultationByID fetches one consultation with its prescriptions.
func (h *ConsultationHandler) GetConsultationByID(c *gin.Context) {
	consultationID := c.Param("id")

	var consultation models.Consultation
	err := h.DB.Preload("Prescriptions").Preload("Appointment").
		First(&consultation, "id = ?", consultationID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Consultation not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	isPatient := userID == consultation.Appointment.PatientID
	isProvider := userID == consultation.Appointment.ProviderID
	if userRole != models.RoleAdmin && !isPatient && !isProvider {
		utils.Forbidden(c, "You are not authorized to view this consultation")
		return
	}

	utils.Success(c, "Consultation fetched successfully", consultation)
}

// GetConsultationsForPatient lists every consultation attached to the
// patient's appointments.
func (h *ConsultationHandler) GetConsultationsForPatient(c *gin.Context) {
	patientID := c.Param("patientId")

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole == models.RolePatient && userID != patientID {
		utils.Forbidden(c, "Patients can only view their own consultations")
		return
	}

	var consultations []models.Consultation
	err := h.DB.Preload("Prescriptions").
		Joins("JOIN appointments ON appointments.id = consultations.appointment_id").
		Where("appointments.patient_id = ?", patientID).
		Order("consultations.consultation_date desc").
		Find(&consultations).Error
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch consultations: "+err.Error())
		return
	}

	utils.Success(c, "Consultations fetched successfully", consultations)
}

// UpdateConsultationRequest is a typed partial update of clinical fields.
type UpdateConsultationRequest struct {
	Diagnosis    *string `json:"diagnosis"`
	Treatment    *string `json:"treatment"`
	PrivateNotes *string `json:"privateNotes"`
}

// UpdateConsultation amends the clinical fields of an existing
// consultation. Only the provider who attended it (or an admin) may edit.
func (h *ConsultationHandler) UpdateConsultation(c *gin.Context) {
	consultationID := c.Param("id")

	var req UpdateConsultationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	var consultation models.Consultation
	err := h.DB.Preload("Appointment").First(&consultation, "id = ?", consultationID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Consultation not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole != models.RoleAdmin && userID != consultation.Appointment.ProviderID {
		utils.Forbidden(c, "Only the attending provider can update this consultation")
		return
	}

	if req.Diagnosis != nil {
		consultation.Diagnosis = *req.Diagnosis
	}
	if req.Treatment != nil {
		consultation.Treatment = *req.Treatment
	}
	if req.PrivateNotes != nil {
		consultation.ProviderPrivateNotes = *req.PrivateNotes
	}

	if err := h.DB.Save(&consultation).Error; err != nil {
		utils.InternalServerError(c, "Failed to update consultation: "+err.Error())
		return
	}
	utils.Success(c, "Consultation updated successfully", consultation)
}

// AddPrescriptionRequest represents the request body for issuing a
// prescription on an existing consultation.
type AddPrescriptionRequest struct {
	Medication   string `json:"medication" binding:"required"`
	Dose         string `json:"dose"`
	Instructions string `json:"instructions"`
}

// AddPrescription issues an additional prescription on a consultation.
func (h *ConsultationHandler) AddPrescription(c *gin.Context) {
	consultationID := c.Param("id")

	var req AddPrescriptionRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var consultation models.Consultation
	err := h.DB.Preload("Appointment").First(&consultation, "id = ?", consultationID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Consultation not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole != models.RoleAdmin && userID != consultation.Appointment.ProviderID {
		utils.Forbidden(c, "Only the attending provider can issue prescriptions")
		return
	}

	prescription := models.Prescription{
		ConsultationID: consultation.ID,
		Medication:     req.Medication,
		Dose:           req.Dose,
		Instructions:   req.Instructions,
		IssuedAt:       time.Now(),
	}
	if err := h.DB.Create(&prescription).Error; err != nil {
		utils.InternalServerError(c, "Failed to create prescription: "+err.Error())
		return
	}
	utils.Created(c, "Prescription created successfully", prescription)
}
