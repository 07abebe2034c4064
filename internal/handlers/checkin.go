package handlers

import (
	"net/http"
	"strings"
	"time"

	"eventhub-ticketing/internal/logger"
	"eventhub-ticketing/internal/models"
	"eventhub-ticketing/internal/services"
	"eventhub-ticketing/internal/utils"

	"github.com/gin-gonic/gin"
)

type CheckInRequest struct {
	QRData     string `json:"qrData"`
	EventID    string `json:"eventId"`
	DeviceInfo string `json:"deviceInfo,omitempty"`
	DryRun     bool   `json:"dryRun,omitempty"`
}

// CheckInResponse is sent with 200 for every decided scan, admitted or not.
type CheckInResponse struct {
	Valid       bool                   `json:"valid"`
	Status      models.CheckInStatus   `json:"status"`
	Message     string                 `json:"message"`
	TicketType  string                 `json:"ticketType,omitempty"`
	Attendee    *services.AttendeeInfo `json:"attendee,omitempty"`
	CheckedInAt *time.Time             `json:"checkedInAt,omitempty"`
	EventStart  *time.Time             `json:"eventStart,omitempty"`
}

type CheckInHandler struct {
	checkIns *services.CheckInService
	log      *logger.Logger
}

func NewCheckInHandler(checkIns *services.CheckInService, log *logger.Logger) *CheckInHandler {
	return &CheckInHandler{checkIns: checkIns, log: log}
}

func (h *CheckInHandler) Validate(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}
	if strings.TrimSpace(req.QRData) == "" || strings.TrimSpace(req.EventID) == "" {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Validation failed", "qrData and eventId are required"))
		return
	}

	ctx := c.Request.Context()
	if err := h.checkIns.Authorize(ctx, req.EventID, actor); err != nil {
		respondError(c, h.log, "Check-in not permitted", err)
		return
	}

	res, err := h.checkIns.Scan(ctx, services.ScanRequest{
		QRData:     req.QRData,
		EventID:    req.EventID,
		StaffID:    actor.UserID,
		DeviceInfo: req.DeviceInfo,
		DryRun:     req.DryRun,
	})
	if err != nil {
		h.log.Error("CHECKIN", "scan failed: "+err.Error())
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Check-in failed", "internal error"))
		return
	}

	c.JSON(http.StatusOK, CheckInResponse{
		Valid:       res.Valid,
		Status:      res.Status,
		Message:     res.Message,
		TicketType:  res.TicketType,
		Attendee:    res.Attendee,
		CheckedInAt: res.CheckedInAt,
		EventStart:  res.EventStart,
	})
}

func (h *CheckInHandler) History(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	eventID := c.Param("id")
	ctx := c.Request.Context()

	if err := h.checkIns.Authorize(ctx, eventID, actor); err != nil {
		respondError(c, h.log, "Check-in history not permitted", err)
		return
	}

	entries, err := h.checkIns.History(ctx, eventID, queryInt(c, "limit", 100))
	if err != nil {
		respondError(c, h.log, "Failed to retrieve check-in history", err)
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Check-in history retrieved", entries))
}
