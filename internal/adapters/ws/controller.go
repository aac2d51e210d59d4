// Package ws is the WebSocket adapter: it authenticates the upgrade, owns the
// per-connection read/write pumps, and feeds decoded frames to the router.
package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/nexuschat/server/internal/app"
	"github.com/nexuschat/server/internal/config"
	"github.com/nexuschat/server/internal/core"
	"github.com/nexuschat/server/internal/domain"
)

type Controller struct {
	Router   *app.Router
	Verifier core.TokenVerifier
	Cfg      *config.Config

	limiter *RateLimiter
}

func NewController(router *app.Router, verifier core.TokenVerifier, cfg *config.Config) *Controller {
	return &Controller{
		Router:   router,
		Verifier: verifier,
		Cfg:      cfg,
		limiter:  NewRateLimiter(cfg.RateLimit, cfg.RateInterval),
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleChat upgrades /api/ws/:user_id. The bearer token comes as a query
// parameter; the upgrade happens first so an auth failure can be reported
// with the distinguishing close code instead of a bare HTTP error.
func (ctl *Controller) HandleChat(ctx context.Context, c *gin.Context) {
	userID := domain.UserID(c.Param("user_id"))

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("upgrade")
		return
	}

	identity, err := ctl.Verifier.Verify(c.Query("token"))
	if err != nil || identity.UserID != userID {
		log.Warn().Err(err).Str("module", "ws").Str("user", string(userID)).Msg("refusing connection, auth failed")
		msg := websocket.FormatCloseMessage(CloseAuthFailure, "authentication failed")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}

	cc := newChatConn(conn, ctl.Cfg.SendBuffer)
	sess := core.NewSession(domain.User{ID: identity.UserID, Username: identity.Username}, cc)
	log.Info().Str("module", "ws").Str("user", string(identity.UserID)).Msg("new connection")

	ctx, cancel := context.WithCancel(ctx)
	ctl.Router.HandleConnect(sess)

	go ctl.writePump(ctx, cc)
	go ctl.readPump(ctx, cancel, sess, cc)
}
