package controller

import (
	"context"
	"encoding/json"
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

// DeleteMessageController soft-deletes a message and pushes the
// messageDeleted event to the conversation's live sessions.
type DeleteMessageController struct {
	UC     *usecase.DeleteMessageUseCase
	router *realtime.Router
}

func NewDeleteMessageController(pool *pgxpool.Pool, router *realtime.Router, cache cacheport.Cache) *DeleteMessageController {
	repo := adapter.NewPgChatRepository(pool)
	return &DeleteMessageController{
		UC:     usecase.NewDeleteMessageUseCase(repo, usecase.NewSummaryCache(cache)),
		router: router,
	}
}

func (h *DeleteMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		messageID := c.Param("messageId")
		if messageID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "messageId is required"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		msg, err := h.UC.Execute(ctx, usecase.DeleteMessageInput{
			MessageID: messageID,
			UserID:    AuthedUserID(c),
		})
		if err != nil {
			c.JSON(statusForMessageError(err), gin.H{"error": err.Error()})
			return
		}

		broadcastMessageEvent(h.router, realtime.EventMessageDeleted, msg)
		c.JSON(http.StatusOK, gin.H{"id": msg.ID, "deleted": true})
	}
}

func statusForMessageError(err error) int {
	switch {
	case errors.Is(err, usecase.ErrPersistence):
		return http.StatusInternalServerError
	case errors.Is(err, chat.ErrMessageNotFound):
		return http.StatusNotFound
	case errors.Is(err, chat.ErrNotSender):
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

func broadcastMessageEvent(router *realtime.Router, eventType string, msg *chat.Message) {
	payload, err := json.Marshal(realtime.EventFrame{
		Type:           eventType,
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
	})
	if err != nil {
		return
	}
	router.Broadcast(msg.ConversationID, payload, "")
}
