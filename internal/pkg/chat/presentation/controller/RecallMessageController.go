package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	cacheport "github.com/ywutian/study-abroad-platform-sub014/internal/infrastructure/cache/port"
	"github.com/ywutian/study-abroad-platform-sub014/internal/infrastructure/realtime"
	chat "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/application/domain"
	"github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/application/usecase"
	"github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/persistence/repository/adapter"
)

// RecallMessageController recalls a recently sent message. The recall window
// is checked in the use case; this layer only maps the outcome.
type RecallMessageController struct {
	UC     *usecase.RecallMessageUseCase
	router *realtime.Router
}

func NewRecallMessageController(pool *pgxpool.Pool, router *realtime.Router, cache cacheport.Cache) *RecallMessageController {
	repo := adapter.NewPgChatRepository(pool)
	return &RecallMessageController{
		UC:     usecase.NewRecallMessageUseCase(repo, usecase.NewSummaryCache(cache)),
		router: router,
	}
}

func (h *RecallMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		messageID := c.Param("messageId")
		if messageID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "messageId is required"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		msg, err := h.UC.Execute(ctx, usecase.RecallMessageInput{
			MessageID: messageID,
			UserID:    AuthedUserID(c),
		})
		if err != nil {
			status := statusForMessageError(err)
			if errors.Is(err, chat.ErrRecallWindowElapsed) || errors.Is(err, chat.ErrAlreadyRecalled) {
				status = http.StatusConflict
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		broadcastMessageEvent(h.router, realtime.EventMessageRecalled, msg)
		c.JSON(http.StatusOK, gin.H{"id": msg.ID, "recalled": true})
	}
}
