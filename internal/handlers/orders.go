package handlers

import (
	"net/http"

	"eventhub-ticketing/internal/logger"
	"eventhub-ticketing/internal/services"
	"eventhub-ticketing/internal/utils"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	orders *services.OrderConfirmationService
	log    *logger.Logger
}

func NewOrderHandler(orders *services.OrderConfirmationService, log *logger.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, log: log}
}

// IssueTickets is the manual path for orders whose order.completed message
// was skipped or failed.
func (h *OrderHandler) IssueTickets(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	orderID := c.Param("id")
	ctx := c.Request.Context()

	if err := h.orders.AuthorizeOrder(ctx, orderID, actor); err != nil {
		respondError(c, h.log, "Ticket issuance not permitted", err)
		return
	}

	tickets, err := h.orders.IssueForOrder(ctx, orderID)
	if err != nil {
		respondError(c, h.log, "Ticket issuance failed", err)
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Tickets issued", tickets))
}
