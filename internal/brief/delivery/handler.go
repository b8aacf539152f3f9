package delivery

import (
	"net/http"

	"github.com/mdonangelo-tech/chiefos-backend/internal/brief/usecase"

	"github.com/gin-gonic/gin"
)

type BriefHandler struct {
	briefUsecase usecase.BriefUsecase
}

func NewBriefHandler(briefUsecase usecase.BriefUsecase) *BriefHandler {
	return &BriefHandler{
		briefUsecase: briefUsecase,
	}
}

func (h *BriefHandler) GetBrief(c *gin.Context) {
	userID := c.GetString("userID")

	brief, err := h.briefUsecase.BuildBrief(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, brief)
}
