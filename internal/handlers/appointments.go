package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"clinic-scheduler-server/internal/middleware"
	"clinic-scheduler-server/internal/models"
	"clinic-scheduler-server/internal/scheduling"
	"clinic-scheduler-server/internal/utils"
)

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	Store     *scheduling.AppointmentStore
	Lifecycle *scheduling.Lifecycle
	Reminders *scheduling.ReminderScheduler
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(store *scheduling.AppointmentStore, lifecycle *scheduling.Lifecycle, reminders *scheduling.ReminderScheduler) *AppointmentHandler {
	return &AppointmentHandler{Store: store, Lifecycle: lifecycle, Reminders: reminders}
}

// CreateAppointmentRequest represents the request body for booking a slot.
type CreateAppointmentRequest struct {
	ProviderID string    `json:"providerId" binding:"required,uuid"`
	PatientID  string    `json:"patientId" binding:"required,uuid"`
	StartTime  time.Time `json:"startTime" binding:"required"`
	EndTime    time.Time `json:"endTime" binding:"required"`
	Reason     string    `json:"reason" binding:"required"`
}

// CreateAppointment books a new appointment. The store runs the slot
// validator inside the booking transaction; the handler only shapes the
// request and maps rejections.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	actorID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	actorRole, _ := middleware.GetUserRoleFromContext(c)
	if actorRole == models.RolePatient && actorID != req.PatientID {
		utils.Forbidden(c, "Patients can only book appointments for themselves.")
		return
	}

	appt, err := h.Store.Create(c.Request.Context(), scheduling.CreateAppointmentInput{
		PatientID:  req.PatientID,
		ProviderID: req.ProviderID,
		Start:      req.StartTime,
		End:        req.EndTime,
		Reason:     req.Reason,
	})
	if err != nil {
		respondSchedulingError(c, err)
		return
	}

	// Booking confirmations are best-effort and never fail the booking.
	if err := h.Lifecycle.ConfirmBooking(c.Request.Context(), appt.ID); err == nil {
		appt.BookingNotified = true
	}

	utils.Created(c, "Appointment created successfully", appt)
}

// GetAppointmentsForUser fetches the appointments of the logged-in user
// (patient or provider); admins see everything upcoming.
func (h *AppointmentHandler) GetAppointmentsForUser(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	userRole, _ := middleware.GetUserRoleFromContext(c)

	from := time.Now().AddDate(-1, 0, 0)
	to := time.Now().AddDate(1, 0, 0)

	var appts []models.Appointment
	var err error
	switch userRole {
	case models.RolePatient:
		appts, err = h.Store.ListByPatient(c.Request.Context(), userID, from, to)
	case models.RoleProvider:
		appts, err = h.Store.ListByProvider(c.Request.Context(), userID, from, to)
	case models.RoleAdmin:
		appts, err = h.Store.ListByProvider(c.Request.Context(), c.Query("providerId"), from, to)
	default:
		utils.Forbidden(c, "User role not permitted to view appointments this way.")
		return
	}
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch appointments: "+err.Error())
		return
	}

	utils.Success(c, "Appointments fetched successfully", appts)
}

// GetAppointmentByID fetches a single appointment. Accessible by the
// involved patient, the involved provider, or an admin.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	appt, err := h.Store.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondSchedulingError(c, err)
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole != models.RoleAdmin && userID != appt.PatientID && userID != appt.ProviderID {
		utils.Forbidden(c, "You are not authorized to view this appointment")
		return
	}

	utils.Success(c, "Appointment fetched successfully", appt)
}

// CancelAppointment moves a pending appointment to Cancelled and notifies
// the other party.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	appointmentID := c.Param("id")
	appt, err := h.Store.GetByID(c.Request.Context(), appointmentID)
	if err != nil {
		respondSchedulingError(c, err)
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole != models.RoleAdmin && userID != appt.PatientID && userID != appt.ProviderID {
		utils.Forbidden(c, "You are not authorized to cancel this appointment")
		return
	}

	cancelled, err := h.Lifecycle.Cancel(c.Request.Context(), appointmentID, userID)
	if err != nil {
		respondSchedulingError(c, err)
		return
	}
	utils.Success(c, "Appointment cancelled successfully", cancelled)
}

// MarkAttended records the consultation for an appointment, which is the
// only way an appointment reaches Attended. Providers attend their own
// appointments; admins can attend any.
func (h *AppointmentHandler) MarkAttended(c *gin.Context) {
	appointmentID := c.Param("id")

	var req scheduling.ConsultationInput
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appt, err := h.Store.GetByID(c.Request.Context(), appointmentID)
	if err != nil {
		respondSchedulingError(c, err)
		return
	}
	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole != models.RoleAdmin && userID != appt.ProviderID {
		utils.Forbidden(c, "Only the appointment's provider can record the consultation")
		return
	}

	consultation, err := h.Lifecycle.RecordConsultation(c.Request.Context(), appointmentID, req)
	if err != nil {
		respondSchedulingError(c, err)
		return
	}
	utils.Created(c, "Consultation recorded successfully", consultation)
}

// MarkNoShow moves a pending appointment to NoShow.
func (h *AppointmentHandler) MarkNoShow(c *gin.Context) {
	appointmentID := c.Param("id")
	appt, err := h.Store.GetByID(c.Request.Context(), appointmentID)
	if err != nil {
		respondSchedulingError(c, err)
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole != models.RoleAdmin && userID != appt.ProviderID {
		utils.Forbidden(c, "Only the appointment's provider can mark a no-show")
		return
	}

	updated, err := h.Lifecycle.MarkNoShow(c.Request.Context(), appointmentID)
	if err != nil {
		respondSchedulingError(c, err)
		return
	}
	utils.Success(c, "Appointment marked as no-show", updated)
}

// PatchAppointmentRequest represents the request body for a partial update.
type PatchAppointmentRequest struct {
	Status    *models.AppointmentStatus `json:"status"`
	Reason    *string                   `json:"reason"`
	StartTime *time.Time                `json:"startTime"`
	EndTime   *time.Time                `json:"endTime"`
}

// PatchAppointment applies a typed partial update. Time changes go back
// through the slot validator.
func (h *AppointmentHandler) PatchAppointment(c *gin.Context) {
	appointmentID := c.Param("id")

	var req PatchAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	appt, err := h.Store.GetByID(c.Request.Context(), appointmentID)
	if err != nil {
		respondSchedulingError(c, err)
		return
	}
	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole != models.RoleAdmin && userID != appt.ProviderID {
		utils.Forbidden(c, "You are not authorized to update this appointment")
		return
	}

	updated, err := h.Store.ApplyPatch(c.Request.Context(), appointmentID, scheduling.AppointmentPatch{
		Status: req.Status,
		Reason: req.Reason,
		Start:  req.StartTime,
		End:    req.EndTime,
	})
	if err != nil {
		respondSchedulingError(c, err)
		return
	}
	utils.Success(c, "Appointment updated successfully", updated)
}

// DeleteAppointment hard-deletes an appointment. Admin-only at the route.
func (h *AppointmentHandler) DeleteAppointment(c *gin.Context) {
	if err := h.Store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondSchedulingError(c, err)
		return
	}
	utils.Success(c, "Appointment deleted successfully", nil)
}

// GetProviderAgenda lists a provider's appointments between two dates.
func (h *AppointmentHandler) GetProviderAgenda(c *gin.Context) {
	from, to, ok := parseDateRange(c)
	if !ok {
		return
	}
	appts, err := h.Store.ListByProvider(c.Request.Context(), c.Param("providerId"), from, to)
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch agenda: "+err.Error())
		return
	}
	utils.Success(c, "Agenda fetched successfully", appts)
}

// GetPatientHistory lists a patient's appointments between two dates.
func (h *AppointmentHandler) GetPatientHistory(c *gin.Context) {
	patientID := c.Param("patientId")

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole == models.RolePatient && userID != patientID {
		utils.Forbidden(c, "Patients can only view their own history")
		return
	}

	from, to, ok := parseDateRange(c)
	if !ok {
		return
	}
	appts, err := h.Store.ListByPatient(c.Request.Context(), patientID, from, to)
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch history: "+err.Error())
		return
	}
	utils.Success(c, "History fetched successfully", appts)
}

// GetPatientUpcoming lists a patient's future appointments, soonest first.
func (h *AppointmentHandler) GetPatientUpcoming(c *gin.Context) {
	patientID := c.Param("patientId")

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole == models.RolePatient && userID != patientID {
		utils.Forbidden(c, "Patients can only view their own appointments")
		return
	}

	appts, err := h.Store.ListUpcomingForPatient(c.Request.Context(), patientID)
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch upcoming appointments: "+err.Error())
		return
	}
	utils.Success(c, "Upcoming appointments fetched successfully", appts)
}

// TriggerReminderSweep runs one reminder sweep synchronously and returns
// the processed count. Admin-only; exists for manual and testing use.
func (h *AppointmentHandler) TriggerReminderSweep(c *gin.Context) {
	count, err := h.Reminders.Sweep(c.Request.Context())
	if err != nil {
		utils.InternalServerError(c, "Reminder sweep failed: "+err.Error())
		return
	}
	utils.Success(c, "Reminder sweep complete", gin.H{"processed": count})
}

// parseDateRange reads the from/to date query params (YYYY-MM-DD). The
// range is inclusive of both days.
func parseDateRange(c *gin.Context) (time.Time, time.Time, bool) {
	from, err := time.ParseInLocation("2006-01-02", c.Query("from"), time.Local)
	if err != nil {
		utils.BadRequest(c, "Invalid or missing 'from' date, expected YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	to, err := time.ParseInLocation("2006-01-02", c.Query("to"), time.Local)
	if err != nil {
		utils.BadRequest(c, "Invalid or missing 'to' date, expected YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	return from, to.AddDate(0, 0, 1), true
}
