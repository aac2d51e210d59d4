package ws

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/nexuschat/server/internal/core"
)

func (ctl *Controller) writePump(ctx context.Context, c *chatConn) {
	ticker := time.NewTicker(ctl.Cfg.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.Cfg.WriteTimeout)); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.Cfg.WriteTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump is the connection's owning task: frames are processed sequentially
// here, which is what preserves per-sender ordering. Its exit runs the full
// disconnect teardown.
func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, sess *core.Session, c *chatConn) {
	uid := sess.User.ID
	defer func() {
		log.Info().Str("module", "ws").Str("user", string(uid)).Msg("readPump closing")
		if last := ctl.Router.HandleDisconnect(sess); last {
			ctl.limiter.Forget(uid)
		}
		cancel()
		c.Close()
	}()

	c.conn.SetReadLimit(ctl.Cfg.ReadLimit)
	readWait := ctl.Cfg.PingPeriod + ctl.Cfg.WriteTimeout
	_ = c.conn.SetReadDeadline(time.Now().Add(readWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Warn().Err(err).Str("module", "ws").Str("user", string(uid)).Msg("readPump read error")
				}
				return
			}
			if !ctl.limiter.Allow(uid) {
				log.Warn().Str("module", "ws").Str("user", string(uid)).Msg("rate limit exceeded, dropping frame")
				continue
			}
			ctl.Router.Handle(uid, sess.User.Username, data)
		}
	}
}
