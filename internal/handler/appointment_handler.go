package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/petshop-system/petshop-management/internal/model"
	"github.com/petshop-system/petshop-management/internal/repository"
	"github.com/petshop-system/petshop-management/pkg/utils"
)

type AppointmentHandler struct {
	appointmentRepo *repository.AppointmentRepository
}

type CreateAppointmentRequest struct {
	AnimalID      uuid.UUID `json:"animal_id" binding:"required"`
	ServiceItemID uuid.UUID `json:"service_item_id" binding:"required"`
	ScheduledAt   time.Time `json:"scheduled_at" binding:"required"`
	Notes         string    `json:"notes"`
}

type UpdateAppointmentRequest struct {
	ScheduledAt *time.Time `json:"scheduled_at"`
	Status      string     `json:"status" binding:"omitempty,oneof=scheduled completed cancelled"`
	Notes       string     `json:"notes"`
}

func NewAppointmentHandler(appointmentRepo *repository.AppointmentRepository) *AppointmentHandler {
	return &AppointmentHandler{appointmentRepo: appointmentRepo}
}

func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, utils.ErrCodeValidationFailed, "Invalid request body: %v", err)
		return
	}

	appt := &model.Appointment{
		AnimalID:      req.AnimalID,
		ServiceItemID: req.ServiceItemID,
		ScheduledAt:   req.ScheduledAt,
		Status:        model.AppointmentStatusScheduled,
		Notes:         req.Notes,
	}

	// 引用的animal/service_item必须属于当前租户, 网关在写入前后各校验一次
	if err := h.appointmentRepo.Create(c.Request.Context(), appt); err != nil {
		handleTenantError(c, err, "Failed to create appointment")
		return
	}

	utils.Success(c, http.StatusCreated, appt)
}

func (h *AppointmentHandler) GetAppointment(c *gin.Context) {
	id, err := utils.ParseUUID(c.Param("id"))
	if err != nil {
		utils.Error(c, utils.ErrCodeValidationFailed, "Invalid appointment id")
		return
	}

	appt, err := h.appointmentRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		handleTenantError(c, err, "Failed to get appointment")
		return
	}

	utils.Success(c, http.StatusOK, appt)
}

func (h *AppointmentHandler) ListAppointments(c *gin.Context) {
	now := time.Now()
	from := now.AddDate(0, 0, -7)
	to := now.AddDate(0, 0, 30)

	if v := c.Query("from"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			utils.Error(c, utils.ErrCodeValidationFailed, "Invalid from timestamp")
			return
		}
		from = parsed
	}
	if v := c.Query("to"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			utils.Error(c, utils.ErrCodeValidationFailed, "Invalid to timestamp")
			return
		}
		to = parsed
	}

	appointments, err := h.appointmentRepo.ListBetween(c.Request.Context(), from, to)
	if err != nil {
		handleTenantError(c, err, "Failed to list appointments")
		return
	}

	utils.Success(c, http.StatusOK, gin.H{
		"appointments": appointments,
		"total":        len(appointments),
	})
}

func (h *AppointmentHandler) UpdateAppointment(c *gin.Context) {
	id, err := utils.ParseUUID(c.Param("id"))
	if err != nil {
		utils.Error(c, utils.ErrCodeValidationFailed, "Invalid appointment id")
		return
	}

	var req UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, utils.ErrCodeValidationFailed, "Invalid request body: %v", err)
		return
	}

	appt, err := h.appointmentRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		handleTenantError(c, err, "Failed to get appointment")
		return
	}

	if req.ScheduledAt != nil {
		appt.ScheduledAt = *req.ScheduledAt
	}
	if req.Status != "" {
		appt.Status = req.Status
	}
	if req.Notes != "" {
		appt.Notes = req.Notes
	}

	if err := h.appointmentRepo.Update(c.Request.Context(), appt); err != nil {
		handleTenantError(c, err, "Failed to update appointment")
		return
	}

	utils.Success(c, http.StatusOK, appt)
}

func (h *AppointmentHandler) DeleteAppointment(c *gin.Context) {
	id, err := utils.ParseUUID(c.Param("id"))
	if err != nil {
		utils.Error(c, utils.ErrCodeValidationFailed, "Invalid appointment id")
		return
	}

	if err := h.appointmentRepo.Delete(c.Request.Context(), id); err != nil {
		handleTenantError(c, err, "Failed to delete appointment")
		return
	}

	utils.Success(c, http.StatusOK, gin.H{"id": id})
}
