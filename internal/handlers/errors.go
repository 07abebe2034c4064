package handlers

import (
	"errors"
	"net/http"

	"eventhub-ticketing/internal/logger"
	"eventhub-ticketing/internal/middleware"
	"eventhub-ticketing/internal/services"
	"eventhub-ticketing/internal/storage"
	"eventhub-ticketing/internal/utils"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors onto HTTP statuses. Anything unrecognised
// is a 500 and is logged; its detail is not sent to the client.
func respondError(c *gin.Context, log *logger.Logger, message string, err error) {
	var status int
	switch {
	case errors.Is(err, storage.ErrTicketNotFound),
		errors.Is(err, storage.ErrEventNotFound),
		errors.Is(err, storage.ErrOrderNotFound),
		errors.Is(err, storage.ErrTicketTypeNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrOrderNotCompleted),
		errors.Is(err, services.ErrIssueInProgress):
		status = http.StatusConflict
	case errors.Is(err, services.ErrPaymentNotConfirmed):
		status = http.StatusPaymentRequired
	case errors.Is(err, services.ErrInvalidOrderItems),
		errors.Is(err, services.ErrEventMismatch):
		status = http.StatusUnprocessableEntity
	default:
		log.Error("API", message+": "+err.Error())
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse(message, "internal error"))
		return
	}
	c.JSON(status, utils.ErrorResponse(message, err.Error()))
}

// actorFrom reads the caller set by middleware.JWTAuth.
func actorFrom(c *gin.Context) (services.Actor, bool) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, utils.ErrorResponse("Unauthorized", ""))
		return services.Actor{}, false
	}
	return services.Actor{UserID: claims.UserID, Role: claims.Role}, true
}
