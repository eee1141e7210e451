// Package relay раздаёт снапшоты очереди оверлейным виджетам (браузерный
// источник OBS) по websocket. Виджет при подключении сразу получает
// текущее состояние, затем каждое обновление; аутентификация не нужна,
// relay слушает локальный адрес рядом с дашбордом.
package relay

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/breaks/internal/broadcast"
	"github.com/vladislavdragonenkov/breaks/internal/domain"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// Relay принимает websocket-подключения виджетов и транслирует им
// значения из broadcaster'а.
type Relay struct {
	bc       *broadcast.Broadcaster
	upgrader websocket.Upgrader
	logger   *log.Entry
}

// New создаёт relay поверх broadcaster'а.
func New(bc *broadcast.Broadcaster) *Relay {
	return &Relay{
		bc: bc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Виджет открывается из file:// или obs-браузера, Origin
			// не проверяем.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: log.WithField("component", "widget-relay"),
	}
}

// Router возвращает роутер relay.
func (rl *Relay) Router() *mux.Router {
	r := mux.NewRouter()
	r.Methods(http.MethodGet).Path("/widget").HandlerFunc(rl.handleWidget)
	return r
}

func (rl *Relay) handleWidget(w http.ResponseWriter, r *http.Request) {
	conn, err := rl.upgrader.Upgrade(w, r, nil)
	if err != nil {
		rl.logger.WithError(err).Warn("websocket upgrade не удался")
		return
	}
	defer conn.Close()

	sub := rl.bc.Subscribe()
	defer sub.Cancel()

	logger := rl.logger.WithField("remote", r.RemoteAddr)
	logger.Info("виджет подключился")
	defer logger.Info("виджет отключился")

	// Читающая горутина нужна только чтобы заметить закрытие со стороны
	// виджета; входящих сообщений протокол не предусматривает.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case snap, ok := <-sub.Updates():
			if !ok {
				return
			}
			if err := rl.writeSnapshot(conn, snap); err != nil {
				logger.WithError(err).Debug("запись виджету не удалась")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (rl *Relay) writeSnapshot(conn *websocket.Conn, snap domain.QueueSnapshot) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(domain.StreamEvent{BreaksUpdated: snap})
}
