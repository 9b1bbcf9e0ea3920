package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	cacheport "github.com/ywutian/study-abroad-platform-sub014/internal/infrastructure/cache/port"
	"github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/application/usecase"
	"github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/persistence/repository/adapter"
)

// ListConversationsController serves the conversation summary list,
// cache-first.
type ListConversationsController struct {
	UC *usecase.ListConversationsUseCase
}

func NewListConversationsController(pool *pgxpool.Pool, cache cacheport.Cache) *ListConversationsController {
	repo := adapter.NewPgChatRepository(pool)
	return &ListConversationsController{
		UC: usecase.NewListConversationsUseCase(repo, usecase.NewSummaryCache(cache)),
	}
}

func (h *ListConversationsController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		in := usecase.ListConversationsInput{UserID: AuthedUserID(c)}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		convs, err := h.UC.Execute(ctx, in)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, usecase.ErrPersistence) {
				status = http.StatusInternalServerError
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		out := make([]gin.H, 0, len(convs))
		for _, conv := range convs {
			out = append(out, gin.H{
				"id":              conv.ID,
				"user_a":          conv.UserA,
				"user_b":          conv.UserB,
				"created_at":      conv.CreatedAt,
				"last_message_at": conv.LastMessageAt,
			})
		}

		c.JSON(http.StatusOK, gin.H{"conversations": out, "count": len(out)})
	}
}
