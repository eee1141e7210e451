// Package server — тонкий HTTP-слой над Queue Store: приём webhook'ов
// магазина, операторские мутации и push-канал снапшотов (SSE).
package server

import (
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/breaks/internal/broadcast"
	"github.com/vladislavdragonenkov/breaks/internal/domain"
	"github.com/vladislavdragonenkov/breaks/internal/metrics"
	"github.com/vladislavdragonenkov/breaks/internal/queue"
)

// Server связывает маршруты с Queue Store и broadcaster'ом.
type Server struct {
	store   *queue.Store
	bc      *broadcast.Broadcaster
	auth    domain.AuthKeyRepository
	metrics *metrics.QueueMetrics
	logger  *log.Entry
}

// New создаёт HTTP-слой сервиса.
func New(store *queue.Store, bc *broadcast.Broadcaster, auth domain.AuthKeyRepository, qm *metrics.QueueMetrics, logger *log.Entry) *Server {
	return &Server{
		store:   store,
		bc:      bc,
		auth:    auth,
		metrics: qm,
		logger:  logger,
	}
}

// Router собирает все маршруты сервиса.
//
// /new_order намеренно без проверки ключа: его зовёт webhook магазина,
// который умеет только POST с телом заказа. Всё остальное — операторские
// ручки за shared-secret.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.Methods(http.MethodPost).Path("/new_order").HandlerFunc(s.handleNewOrder)

	protected := r.NewRoute().Subrouter()
	protected.Use(s.requireAuth)
	protected.Methods(http.MethodGet).Path("/login").HandlerFunc(s.handleLogin)
	protected.Methods(http.MethodGet).Path("/all_orders").HandlerFunc(s.handleAllOrders)
	protected.Methods(http.MethodGet).Path("/sse").HandlerFunc(s.handleEventStream)
	protected.Methods(http.MethodPost).Path("/order_completed/{order_number:[0-9]+}").HandlerFunc(s.handleOrderCompleted)
	protected.Methods(http.MethodPost).Path("/order/{order_number:[0-9]+}/move_up").HandlerFunc(s.handleMoveUp)
	protected.Methods(http.MethodPost).Path("/order/{order_number:[0-9]+}/move_down").HandlerFunc(s.handleMoveDown)
	protected.Methods(http.MethodPost).Path("/update_order/{order_number:[0-9]+}").HandlerFunc(s.handleUpdateOrder)

	return r
}
