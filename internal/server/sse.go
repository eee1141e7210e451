package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/breaks/internal/domain"
)

// keepAliveInterval — период пустых кадров, не дающих промежуточным
// прокси закрыть простаивающее подключение.
const keepAliveInterval = 15 * time.Second

// handleEventStream превращает подписку на broadcaster в непрерывный
// text/event-stream. На каждый снапшот — один кадр data; на подключение
// никакого таймаута — канал рассчитан жить часами. Ошибка записи просто
// завершает это одно подключение; переподключение — забота клиента.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := s.bc.Subscribe()
	defer sub.Cancel()
	defer s.metrics.RecordStreamClosed()

	streamLogger := s.logger.WithFields(log.Fields{
		"stream": uuid.NewString(),
		"remote": r.RemoteAddr,
	})
	streamLogger.Info("открыт event stream")

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			streamLogger.Info("клиент отключился")
			return

		case snap, open := <-sub.Updates():
			if !open {
				streamLogger.Info("broadcaster остановлен, закрываем stream")
				return
			}
			if err := writeEvent(w, snap); err != nil {
				streamLogger.WithError(err).Info("запись в stream не удалась")
				return
			}
			flusher.Flush()

		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				streamLogger.WithError(err).Info("keep-alive не доставлен")
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, snap domain.QueueSnapshot) error {
	data, err := json.Marshal(domain.StreamEvent{BreaksUpdated: snap})
	if err != nil {
		return fmt.Errorf("marshal stream event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write stream event: %w", err)
	}
	return nil
}
