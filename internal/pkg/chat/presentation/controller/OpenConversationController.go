package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	authzport "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/authz/port"
	chat "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/application/domain"
	"github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/application/usecase"
	"github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/persistence/repository/adapter"
)

// OpenConversationController handles opening a thread with another user
// (one controller per endpoint).
type OpenConversationController struct {
	UC *usecase.OpenConversationUseCase
}

func NewOpenConversationController(pool *pgxpool.Pool, gate authzport.Gate) *OpenConversationController {
	repo := adapter.NewPgChatRepository(pool)
	return &OpenConversationController{UC: usecase.NewOpenConversationUseCase(repo, gate)}
}

type openConversationRequest struct {
	PeerID string `json:"peer_id" binding:"required"`
}

func (h *OpenConversationController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req openConversationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		in := usecase.OpenConversationInput{
			InitiatorID: AuthedUserID(c),
			PeerID:      req.PeerID,
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		conv, err := h.UC.Execute(ctx, in)
		if err != nil {
			c.JSON(statusForConversationError(err), gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"id":              conv.ID,
			"user_a":          conv.UserA,
			"user_b":          conv.UserB,
			"created_at":      conv.CreatedAt,
			"last_message_at": conv.LastMessageAt,
		})
	}
}

func statusForConversationError(err error) int {
	switch {
	case errors.Is(err, usecase.ErrPersistence), errors.Is(err, usecase.ErrAuthorization):
		return http.StatusInternalServerError
	case errors.Is(err, chat.ErrUserBlocked),
		errors.Is(err, chat.ErrNotMutualFollow),
		errors.Is(err, chat.ErrInsufficientRole):
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}
