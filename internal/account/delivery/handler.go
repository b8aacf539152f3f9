package delivery

import (
	"errors"
	"net/http"

	accountdto "github.com/mdonangelo-tech/chiefos-backend/internal/account/dto"
	"github.com/mdonangelo-tech/chiefos-backend/internal/account/usecase"

	"github.com/gin-gonic/gin"
)

type AccountHandler struct {
	accountUsecase usecase.AccountUsecase
}

func NewAccountHandler(accountUsecase usecase.AccountUsecase) *AccountHandler {
	return &AccountHandler{
		accountUsecase: accountUsecase,
	}
}

func (h *AccountHandler) ConnectAccount(c *gin.Context) {
	userID := c.GetString("userID")

	var req accountdto.ConnectAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := h.accountUsecase.ConnectAccount(userID, &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, account)
}

func (h *AccountHandler) ListAccounts(c *gin.Context) {
	userID := c.GetString("userID")

	accounts, err := h.accountUsecase.ListAccounts(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

func (h *AccountHandler) DisconnectAccount(c *gin.Context) {
	userID := c.GetString("userID")
	accountID := c.Param("id")

	if err := h.accountUsecase.DisconnectAccount(userID, accountID); err != nil {
		if errors.Is(err, usecase.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "disconnected"})
}
