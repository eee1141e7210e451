package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/vladislavdragonenkov/breaks/internal/domain"
)

// handleNewOrder принимает webhook магазина с новым заказом.
//
// Повторная доставка того же номера отвечает 200: магазин ретраит до
// первого успеха, и для него дубликат — это успех.
func (s *Server) handleNewOrder(w http.ResponseWriter, r *http.Request) {
	var payload domain.OrderPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "malformed order document", http.StatusUnprocessableEntity)
		return
	}
	if errs := payload.Validate(); len(errs) != 0 {
		s.logger.WithField("errors", errs).Info("отклонён невалидный документ заказа")
		http.Error(w, "invalid order document", http.StatusUnprocessableEntity)
		return
	}

	s.logger.WithField("order", payload.OrderNumber).Info("получен новый заказ")

	switch err := s.store.Append(payload); {
	case err == nil:
		w.WriteHeader(http.StatusOK)
	case errors.Is(err, domain.ErrDuplicateOrder):
		s.logger.WithField("order", payload.OrderNumber).Info("повторная доставка заказа")
		w.WriteHeader(http.StatusOK)
	default:
		s.logger.WithError(err).WithField("order", payload.OrderNumber).
			Error("не удалось принять заказ")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// handleAllOrders отдаёт очередь в порядке обслуживания одним списком.
// Используется клиентами при подключении, до первого значения push-канала.
func (s *Server) handleAllOrders(w http.ResponseWriter, _ *http.Request) {
	snap := s.store.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		s.logger.WithError(err).Error("не удалось отдать список заказов")
	}
}

// handleLogin — проба учётных данных: до этой точки добираются только
// запросы, прошедшие requireAuth.
func (s *Server) handleLogin(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleOrderCompleted(w http.ResponseWriter, r *http.Request) {
	n, ok := orderNumberVar(w, r)
	if !ok {
		return
	}

	if err := s.store.Remove(n); err != nil {
		s.writeQueueError(w, n, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleMoveUp(w http.ResponseWriter, r *http.Request) {
	n, ok := orderNumberVar(w, r)
	if !ok {
		return
	}

	if err := s.store.MoveUp(n); err != nil {
		s.writeQueueError(w, n, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleMoveDown(w http.ResponseWriter, r *http.Request) {
	n, ok := orderNumberVar(w, r)
	if !ok {
		return
	}

	if err := s.store.MoveDown(n); err != nil {
		s.writeQueueError(w, n, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// orderUpdate — тело запроса на изменение заказа. Внешнее тегирование
// (единственное поле — вид правки) повторяет исторический формат клиентов.
type orderUpdate struct {
	Name *string `json:"Name"`
}

func (s *Server) handleUpdateOrder(w http.ResponseWriter, r *http.Request) {
	n, ok := orderNumberVar(w, r)
	if !ok {
		return
	}

	var update orderUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil || update.Name == nil {
		http.Error(w, "malformed order update", http.StatusUnprocessableEntity)
		return
	}

	if err := s.store.Rename(n, *update.Name); err != nil {
		s.writeQueueError(w, n, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func orderNumberVar(w http.ResponseWriter, r *http.Request) (domain.OrderNumber, bool) {
	raw := mux.Vars(r)["order_number"]
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		http.Error(w, "invalid order number", http.StatusUnprocessableEntity)
		return 0, false
	}
	return domain.OrderNumber(v), true
}

// writeQueueError переводит ошибки Queue Store в HTTP-статусы. Подробности
// остаются в серверных логах, клиенту достаточно сигнала успех/неуспех.
func (s *Server) writeQueueError(w http.ResponseWriter, n domain.OrderNumber, err error) {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		http.Error(w, "order not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrBoundary):
		http.Error(w, "order already at queue boundary", http.StatusConflict)
	default:
		s.logger.WithError(err).WithField("order", n).Error("мутация очереди не удалась")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
