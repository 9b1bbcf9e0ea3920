package http

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	cacheport "github.com/ywutian/study-abroad-platform-sub014/internal/infrastructure/cache/port"
	qport "github.com/ywutian/study-abroad-platform-sub014/internal/infrastructure/queue/port"
	"github.com/ywutian/study-abroad-platform-sub014/internal/infrastructure/realtime"
	"github.com/ywutian/study-abroad-platform-sub014/internal/infrastructure/token"
	authzport "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/authz/port"
	"github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/presentation/controller"
)

// Deps bundles the infrastructure the chat endpoints need.
type Deps struct {
	Pool     *pgxpool.Pool
	Queue    qport.Client
	Cache    cacheport.Cache
	Router   *realtime.Router
	Verifier *token.Verifier
	Gate     authzport.Gate
}

// RegisterRoutes mounts chat endpoints under the given router group. It
// constructs per-endpoint controllers and binds them directly to routes.
func RegisterRoutes(g *gin.RouterGroup, d Deps) {
	openCtl := controller.NewOpenConversationController(d.Pool, d.Gate)
	listCtl := controller.NewListConversationsController(d.Pool, d.Cache)
	sendMsgCtl := controller.NewSendMessageController(d.Queue)
	getMsgCtl := controller.NewGetMessageController(d.Pool)
	deleteCtl := controller.NewDeleteMessageController(d.Pool, d.Router, d.Cache)
	recallCtl := controller.NewRecallMessageController(d.Pool, d.Router, d.Cache)
	pinCtl := controller.NewPinConversationController(d.Pool, d.Cache)
	socketCtl := controller.NewChatSocketController(d.Pool, d.Router, d.Verifier, d.Gate, d.Cache)

	// GET /api/v1/chat/ws -> websocket endpoint, authenticated in-handshake
	g.GET("/chat/ws", socketCtl.Handle())

	authed := g.Group("", controller.RequireCredential(d.Verifier))

	// POST /api/v1/chat -> open (or find) a conversation with a peer
	authed.POST("/chat", openCtl.Handle())

	// GET /api/v1/chat -> list the caller's conversations
	authed.GET("/chat", listCtl.Handle())

	// POST /api/v1/chat/:conversationId/messages -> fallback send path
	authed.POST("/chat/:conversationId/messages", sendMsgCtl.Handle())

	// GET /api/v1/chat/:conversationId/messages -> fetch history
	authed.GET("/chat/:conversationId/messages", getMsgCtl.Handle())

	// PUT /api/v1/chat/:conversationId/pin -> pin or unpin for the caller
	authed.PUT("/chat/:conversationId/pin", pinCtl.Handle())

	// DELETE /api/v1/messages/:messageId -> soft-delete own message
	authed.DELETE("/messages/:messageId", deleteCtl.Handle())

	// POST /api/v1/messages/:messageId/recall -> recall within the window
	authed.POST("/messages/:messageId/recall", recallCtl.Handle())
}
