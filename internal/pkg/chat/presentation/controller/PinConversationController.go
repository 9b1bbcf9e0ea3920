package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	cacheport "github.com/ywutian/study-abroad-platform-sub014/internal/infrastructure/cache/port"
	chat "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/application/domain"
	"github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/application/usecase"
	"github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/persistence/repository/adapter"
)

// PinConversationController toggles the caller's pin flag on a conversation.
type PinConversationController struct {
	UC *usecase.PinConversationUseCase
}

func NewPinConversationController(pool *pgxpool.Pool, cache cacheport.Cache) *PinConversationController {
	repo := adapter.NewPgChatRepository(pool)
	return &PinConversationController{
		UC: usecase.NewPinConversationUseCase(repo, usecase.NewSummaryCache(cache)),
	}
}

type pinRequest struct {
	Pinned *bool `json:"pinned" binding:"required"`
}

func (h *PinConversationController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		conversationID := c.Param("conversationId")
		if conversationID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "conversationId is required"})
			return
		}

		var req pinRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		err := h.UC.Execute(ctx, usecase.PinConversationInput{
			ConversationID: conversationID,
			UserID:         AuthedUserID(c),
			Pinned:         *req.Pinned,
		})
		if err != nil {
			status := http.StatusBadRequest
			switch {
			case errors.Is(err, usecase.ErrPersistence):
				status = http.StatusInternalServerError
			case errors.Is(err, chat.ErrNotParticipant):
				status = http.StatusForbidden
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"conversation_id": conversationID, "pinned": *req.Pinned})
	}
}
