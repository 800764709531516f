package control

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/satindergrewal/stepseq/internal/logger"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StepEvent is sent to step feed clients whenever the playhead moves.
type StepEvent struct {
	Step int     `json:"step"`
	BPM  float64 `json:"bpm"`
}

// handleStepFeed streams StepEvents over a websocket. The current position is
// sent on connect, then every change.
func (s *Server) handleStepFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("Websocket upgrade failed", logger.ErrorField(err))
		return
	}
	defer conn.Close()

	id := uuid.NewString()
	logger.Info("Step feed client connected", logger.String("client", id))
	defer logger.Info("Step feed client disconnected", logger.String("client", id))

	// The read loop only handles control frames and notices the close.
	closed := make(chan struct{})
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	poll := time.NewTicker(s.StepInterval)
	defer poll.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	last := StepEvent{Step: -1}
	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			return
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-poll.C:
			ev := StepEvent{Step: s.engine.CurrentStep(), BPM: s.engine.BPM()}
			if ev == last {
				continue
			}
			last = ev
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				logger.Debug("Step feed write failed", logger.String("client", id), logger.ErrorField(err))
				return
			}
		}
	}
}
