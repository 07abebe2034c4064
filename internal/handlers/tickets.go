package handlers

import (
	"net/http"
	"strconv"

	"eventhub-ticketing/internal/logger"
	"eventhub-ticketing/internal/services"
	"eventhub-ticketing/internal/utils"

	"github.com/gin-gonic/gin"
)

type TicketHandler struct {
	tickets *services.TicketService
	log     *logger.Logger
}

func NewTicketHandler(tickets *services.TicketService, log *logger.Logger) *TicketHandler {
	return &TicketHandler{tickets: tickets, log: log}
}

func (h *TicketHandler) GetTicket(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	ticket, err := h.tickets.Get(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondError(c, h.log, "Failed to retrieve ticket", err)
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Ticket retrieved", ticket))
}

func (h *TicketHandler) GetTicketQR(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	png, err := h.tickets.QRCode(c.Request.Context(), c.Param("id"), actor, queryInt(c, "size", 0))
	if err != nil {
		respondError(c, h.log, "Failed to render ticket QR code", err)
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, "image/png", png)
}

func (h *TicketHandler) ListMyTickets(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	tickets, err := h.tickets.ListForUser(c.Request.Context(), actor.UserID, queryInt(c, "limit", 20), queryInt(c, "offset", 0))
	if err != nil {
		respondError(c, h.log, "Failed to list tickets", err)
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Tickets retrieved", tickets))
}

func queryInt(c *gin.Context, key string, def int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil {
		return v
	}
	return def
}
