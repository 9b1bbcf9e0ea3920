package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	cacheport "github.com/ywutian/study-abroad-platform-sub014/internal/infrastructure/cache/port"
	"github.com/ywutian/study-abroad-platform-sub014/internal/infrastructure/realtime"
	"github.com/ywutian/study-abroad-platform-sub014/internal/infrastructure/token"
	authzport "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/authz/port"
	chat "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/application/domain"
	"github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/application/usecase"
	repoAdapter "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/persistence/repository/adapter"
)

const defaultReadTimeout = 60 * time.Second

// ChatSocketController owns the websocket endpoint for realtime chat
// traffic. Each session runs one read loop; frames for that session are
// processed strictly one at a time.
type ChatSocketController struct {
	router          *realtime.Router
	verifier        *token.Verifier
	sendMessageUC   *usecase.SendMessageUseCase
	joinRoomUC      *usecase.JoinConversationUseCase
	markReadUC      *usecase.MarkReadUseCase
	participantsUC  *usecase.ListParticipantsUseCase
	inflightTimeout time.Duration
	log             *logrus.Entry
}

func NewChatSocketController(pool *pgxpool.Pool, router *realtime.Router, verifier *token.Verifier, gate authzport.Gate, cache cacheport.Cache) *ChatSocketController {
	repo := repoAdapter.NewPgChatRepository(pool)
	summaries := usecase.NewSummaryCache(cache)
	return &ChatSocketController{
		router:          router,
		verifier:        verifier,
		sendMessageUC:   usecase.NewSendMessageUseCase(repo, gate, summaries),
		joinRoomUC:      usecase.NewJoinConversationUseCase(repo),
		markReadUC:      usecase.NewMarkReadUseCase(repo, summaries),
		participantsUC:  usecase.NewListParticipantsUseCase(repo),
		inflightTimeout: 5 * time.Second,
		log:             logrus.WithField("component", "chat_socket"),
	}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The handshake credential is the access control; origin checks
		// would only break non-browser clients.
		return true
	},
}

// Handle upgrades the request, authenticates the handshake credential and
// processes frames until the client disconnects. Credential failures are
// delivered as a connect_error frame over the socket, never as a thrown
// HTTP error, so clients can route them to their error callback.
func (ctl *ChatSocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response.
			return
		}

		userID, err := ctl.verifier.Verify(c.Query("token"))
		if err != nil {
			ctl.rejectHandshake(ws, err)
			return
		}

		conn := realtime.NewConnection(userID, ws)
		ctl.router.Attach(conn)
		defer func() {
			ctl.router.Detach(conn)
			conn.Close(websocket.CloseNormalClosure, "session closed")
		}()

		ctl.log.WithField("user_id", userID).Info("session attached")

		ws.SetReadLimit(1 << 20)
		_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		})

		ctl.reply(conn, realtime.EventFrame{Type: realtime.EventConnected, UserID: userID})

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) ||
					errors.Is(err, websocket.ErrCloseSent) {
					return
				}
				ctl.log.WithFields(logrus.Fields{"user_id": userID, "error": err}).Debug("read loop ended")
				return
			}

			var frame realtime.InboundFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				ctl.replyError(conn, "bad_request", "invalid payload")
				continue
			}

			switch frame.Type {
			case realtime.FrameJoinConversation:
				ctl.handleJoin(c, conn, frame)
			case realtime.FrameSendMessage:
				ctl.handleSendMessage(c, conn, frame)
			case realtime.FrameTyping:
				ctl.handleTyping(conn, frame)
			case realtime.FrameMarkRead:
				ctl.handleMarkRead(c, conn, frame)
			default:
				ctl.replyError(conn, "unsupported_type", "unknown frame type")
			}
		}
	}
}

func (ctl *ChatSocketController) rejectHandshake(ws *websocket.Conn, cause error) {
	frame := realtime.EventFrame{Type: realtime.EventConnectError, Error: cause.Error()}
	if payload, err := json.Marshal(frame); err == nil {
		_ = ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
		_ = ws.WriteMessage(websocket.TextMessage, payload)
	}
	_ = ws.Close()
}

func (ctl *ChatSocketController) handleJoin(c *gin.Context, conn *realtime.Connection, frame realtime.InboundFrame) {
	if frame.ConversationID == "" {
		ctl.replyError(conn, "bad_request", "conversation_id is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
	defer cancel()

	err := ctl.joinRoomUC.Execute(ctx, usecase.JoinConversationInput{
		ConversationID: frame.ConversationID,
		UserID:         conn.UserID,
	})
	if err != nil {
		ctl.handleUseCaseError(conn, err)
		return
	}

	ctl.router.Join(frame.ConversationID, conn)
}

// handleSendMessage persists the message and answers with exactly one ack
// frame carrying either the created message or a failure reason. The
// broadcast fans out to all room members including the sender; clients
// de-duplicate by message id.
func (ctl *ChatSocketController) handleSendMessage(c *gin.Context, conn *realtime.Connection, frame realtime.InboundFrame) {
	if frame.ConversationID == "" {
		ctl.ack(conn, frame.AckID, nil, "conversation_id is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
	defer cancel()

	msg, err := ctl.sendMessageUC.Execute(ctx, usecase.SendMessageInput{
		ConversationID: frame.ConversationID,
		SenderID:       conn.UserID,
		Content:        frame.Content,
	})
	if err != nil {
		ctl.ack(conn, frame.AckID, nil, err.Error())
		return
	}

	payload := ToMessagePayload(*msg)
	ctl.ack(conn, frame.AckID, &payload, "")

	ctl.broadcastEvent(frame.ConversationID, realtime.EventFrame{
		Type:           realtime.EventNewMessage,
		ConversationID: frame.ConversationID,
		Message:        &payload,
	}, "")

	ctl.notifyPeer(ctx, frame.ConversationID, conn.UserID, payload)
}

// notifyPeer delivers an unread hint straight to the peer's session. The room
// broadcast only reaches sessions joined to the conversation; a peer who is
// online but looking at another screen still needs the signal.
func (ctl *ChatSocketController) notifyPeer(ctx context.Context, conversationID, senderID string, msg realtime.MessagePayload) {
	ids, err := ctl.participantsUC.Execute(ctx, usecase.ListParticipantsInput{ConversationID: conversationID})
	if err != nil {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	frame, err := json.Marshal(realtime.EventFrame{
		Type:           realtime.EventNotification,
		ConversationID: conversationID,
		Data:           data,
	})
	if err != nil {
		return
	}

	for _, id := range ids {
		if id != senderID {
			ctl.router.NotifyUser(id, frame)
		}
	}
}

// handleTyping relays the signal to the rest of the room. The server keeps
// no typing state; expiry on lost stop signals is the receiving client's job.
func (ctl *ChatSocketController) handleTyping(conn *realtime.Connection, frame realtime.InboundFrame) {
	if frame.ConversationID == "" {
		return
	}
	ctl.broadcastEvent(frame.ConversationID, realtime.EventFrame{
		Type:           realtime.EventUserTyping,
		ConversationID: frame.ConversationID,
		UserID:         conn.UserID,
		IsTyping:       frame.IsTyping,
	}, conn.UserID)
}

// handleMarkRead is fire-and-forget from the client's perspective: no ack is
// sent, failures are only logged.
func (ctl *ChatSocketController) handleMarkRead(c *gin.Context, conn *realtime.Connection, frame realtime.InboundFrame) {
	if frame.ConversationID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
	defer cancel()

	readAt := time.Now().UTC()
	err := ctl.markReadUC.Execute(ctx, usecase.MarkReadInput{
		ConversationID: frame.ConversationID,
		UserID:         conn.UserID,
		ReadAt:         readAt,
	})
	if err != nil {
		ctl.log.WithFields(logrus.Fields{
			"user_id":         conn.UserID,
			"conversation_id": frame.ConversationID,
			"error":           err,
		}).Warn("mark read failed")
		return
	}

	ctl.broadcastEvent(frame.ConversationID, realtime.EventFrame{
		Type:           realtime.EventMessagesRead,
		ConversationID: frame.ConversationID,
		UserID:         conn.UserID,
		ReadAt:         &readAt,
	}, "")
}

func (ctl *ChatSocketController) broadcastEvent(conversationID string, frame realtime.EventFrame, excludeUserID string) {
	payload, err := json.Marshal(frame)
	if err != nil {
		return
	}
	ctl.router.Broadcast(conversationID, payload, excludeUserID)
}

func (ctl *ChatSocketController) ack(conn *realtime.Connection, ackID string, msg *realtime.MessagePayload, errMsg string) {
	frame := realtime.AckFrame{Type: realtime.EventAck, AckID: ackID, Message: msg, Error: errMsg}
	if payload, err := json.Marshal(frame); err == nil {
		_ = conn.Send(payload)
	}
}

func (ctl *ChatSocketController) handleUseCaseError(conn *realtime.Connection, err error) {
	switch {
	case errors.Is(err, usecase.ErrPersistence):
		ctl.replyError(conn, "internal_error", "unexpected persistence error")
	case errors.Is(err, chat.ErrNotParticipant):
		ctl.replyError(conn, "forbidden", "user is not a participant in this conversation")
	default:
		ctl.replyError(conn, "bad_request", err.Error())
	}
}

func (ctl *ChatSocketController) reply(conn *realtime.Connection, frame realtime.EventFrame) {
	if payload, err := json.Marshal(frame); err == nil {
		_ = conn.Send(payload)
	}
}

func (ctl *ChatSocketController) replyError(conn *realtime.Connection, code string, message string) {
	ctl.reply(conn, realtime.EventFrame{Type: realtime.EventError, Code: code, Error: message})
}

// ToMessagePayload maps a domain message to its wire form.
func ToMessagePayload(msg chat.Message) realtime.MessagePayload {
	return realtime.MessagePayload{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt,
		Read:           msg.Read,
		Deleted:        msg.Deleted,
		Recalled:       msg.Recalled,
	}
}
