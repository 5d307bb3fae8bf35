package http

import (
	"net/http"
	"strconv"

	"github.com/dkeye/Huddle/internal/adapters/signal"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type postMessageRequest struct {
	RoomID     string        `json:"roomId" binding:"required"`
	SenderID   domain.UserID `json:"senderId"`
	SenderName string        `json:"senderName"`
	Text       string        `json:"text" binding:"required"`
}

// historyLimit reads ?limit, applying the configured default and cap.
func (h *handlers) historyLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return h.cfg.History.DefaultLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return min(n, h.cfg.History.MaxLimit), true
}

func (h *handlers) listMessages(c *gin.Context) {
	roomID, err := domain.ParseRoomID(c.Param("roomId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	limit, ok := h.historyLimit(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	msgs, err := h.deps.Messages.Recent(c.Request.Context(), roomID, limit)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("room", string(roomID)).Msg("fetch messages")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	c.JSON(http.StatusOK, msgs)
}

// postMessage stores one history entry. An authenticated caller's identity
// fills a missing sender.
func (h *handlers) postMessage(c *gin.Context) {
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "roomId and text are required"})
		return
	}
	roomID, err := domain.ParseRoomID(req.RoomID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.SenderID == "" {
		if u, err := h.deps.Auth.Resolve(c.Request.Context(), signal.TokenFromRequest(c)); err == nil {
			req.SenderID = u.ID
			req.SenderName = u.Username
		}
	}

	msg, err := h.deps.Messages.Append(c.Request.Context(), roomID, domain.Message{
		SenderID:   req.SenderID,
		SenderName: req.SenderName,
		Text:       req.Text,
	})
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("room", string(roomID)).Msg("save message")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save message"})
		return
	}
	c.JSON(http.StatusOK, msg)
}
