package delivery

import (
	"net/http"
	"strconv"

	"github.com/mdonangelo-tech/chiefos-backend/internal/mail/usecase"

	"github.com/gin-gonic/gin"
)

type MailHandler struct {
	syncUsecase    usecase.SyncUsecase
	messageUsecase usecase.MessageUsecase
}

func NewMailHandler(syncUsecase usecase.SyncUsecase, messageUsecase usecase.MessageUsecase) *MailHandler {
	return &MailHandler{
		syncUsecase:    syncUsecase,
		messageUsecase: messageUsecase,
	}
}

// SyncAccounts runs a sync pass over all of the caller's connected accounts
// and reports the per-account outcome. Auth expiry on a single account is a
// per-account result, not a request failure.
func (h *MailHandler) SyncAccounts(c *gin.Context) {
	userID := c.GetString("userID")

	report, err := h.syncUsecase.SyncUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Per-account failures live inside the report; the request itself
	// succeeded whenever the engine ran.
	c.JSON(http.StatusOK, report)
}

func (h *MailHandler) ListMessages(c *gin.Context) {
	userID := c.GetString("userID")

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	messages, err := h.messageUsecase.ListRecent(userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (h *MailHandler) MarkRead(c *gin.Context) {
	userID := c.GetString("userID")
	messageID := c.Param("id")

	if err := h.messageUsecase.MarkRead(userID, messageID); err != nil {
		if err.Error() == "message not found" {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "read"})
}
