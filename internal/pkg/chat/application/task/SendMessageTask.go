package task

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	cacheport "github.com/ywutian/study-abroad-platform-sub014/internal/infrastructure/cache/port"
	qport "github.com/ywutian/study-abroad-platform-sub014/internal/infrastructure/queue/port"
	"github.com/ywutian/study-abroad-platform-sub014/internal/infrastructure/realtime"
	authzport "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/authz/port"
	chat "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/application/domain"
	"github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/application/usecase"
	repoAdapter "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/persistence/repository/adapter"
	repoport "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/persistence/repository/port"
)

// SendMessageTaskType is the queue task name for the fallback send path.
const SendMessageTaskType = "chat:send_message"

// SendMessagePayload is the JSON payload transported via the queue. Kept
// decoupled from domain types to avoid coupling queue framing to db tags.
type SendMessagePayload struct {
	ConversationID string `json:"conversationId"`
	SenderID       string `json:"senderId"`
	Content        string `json:"content"`
}

// RegisterSendMessageTask binds the fallback-path handler to the worker
// server. When the worker runs inside the API process the persisted message
// is also fanned out to live sessions, so a peer that kept its connection
// still sees the newMessage event.
func RegisterSendMessageTask(srv qport.Server, pool *pgxpool.Pool, gate authzport.Gate, cache cacheport.Cache, router *realtime.Router) {
	log := logrus.WithField("component", "send_message_task")

	srv.Register(SendMessageTaskType, func(ctx context.Context, t qport.Task) error {
		var p SendMessagePayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			// Malformed payloads never become valid; drop without retry.
			return nil
		}

		repo := repoAdapter.NewPgChatRepository(pool)
		uc := usecase.NewSendMessageUseCase(repo, gate, usecase.NewSummaryCache(cache))

		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		msg, err := uc.Execute(ctx, usecase.SendMessageInput{
			ConversationID: p.ConversationID,
			SenderID:       p.SenderID,
			Content:        p.Content,
		})
		if err != nil {
			// Eligibility rejections are final; infrastructure errors retry.
			if errors.Is(err, usecase.ErrPersistence) || errors.Is(err, usecase.ErrAuthorization) {
				return err
			}
			log.WithFields(logrus.Fields{
				"conversation_id": p.ConversationID,
				"error":           err,
			}).Warn("fallback send rejected")
			return nil
		}

		if router != nil {
			broadcastNewMessage(router, msg)
			notifyPeer(ctx, repo, router, msg)
		}
		return nil
	})
}

// notifyPeer mirrors the realtime path's direct notification so a recipient
// whose session never joined the room still gets the unread hint.
func notifyPeer(ctx context.Context, repo repoport.ChatRepository, router *realtime.Router, msg *chat.Message) {
	ids, err := repo.ListParticipantIDs(ctx, msg.ConversationID)
	if err != nil {
		return
	}

	data, err := json.Marshal(realtime.MessagePayload{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt,
	})
	if err != nil {
		return
	}
	frame, err := json.Marshal(realtime.EventFrame{
		Type:           realtime.EventNotification,
		ConversationID: msg.ConversationID,
		Data:           data,
	})
	if err != nil {
		return
	}

	for _, id := range ids {
		if id != msg.SenderID {
			router.NotifyUser(id, frame)
		}
	}
}

func broadcastNewMessage(router *realtime.Router, msg *chat.Message) {
	payload, err := json.Marshal(realtime.EventFrame{
		Type:           realtime.EventNewMessage,
		ConversationID: msg.ConversationID,
		Message: &realtime.MessagePayload{
			ID:             msg.ID,
			ConversationID: msg.ConversationID,
			SenderID:       msg.SenderID,
			Content:        msg.Content,
			CreatedAt:      msg.CreatedAt,
		},
	})
	if err != nil {
		return
	}
	router.Broadcast(msg.ConversationID, payload, "")
}
