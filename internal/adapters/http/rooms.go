package http

import (
	"net/http"

	"github.com/dkeye/Huddle/internal/domain"
	"github.com/gin-gonic/gin"
)

func (h *handlers) listRooms(c *gin.Context) {
	c.JSON(http.StatusOK, h.deps.Orch.Rooms.List())
}

func (h *handlers) roomMembers(c *gin.Context) {
	roomID := domain.RoomID(c.Param("roomId"))
	if !h.deps.Orch.Rooms.Exists(roomID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	c.JSON(http.StatusOK, h.deps.Orch.Rooms.MembersOf(roomID, ""))
}
