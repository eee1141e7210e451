package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/breaks/internal/domain"
)

// fakeServer — минимальный макет сервера breaks для прогонов клиента:
// отдаёт снапшот, держит один sse-поток и считает принятые действия.
type fakeServer struct {
	mu        sync.Mutex
	snapshot  domain.QueueSnapshot
	validKey  string
	completed []domain.OrderNumber
	submitted []domain.OrderNumber

	streamCh chan domain.QueueSnapshot
	srv      *httptest.Server
}

func newFakeServer(t *testing.T, orders ...domain.OrderNumber) *fakeServer {
	t.Helper()

	f := &fakeServer{
		validKey: base64.StdEncoding.EncodeToString([]byte("operator:secret")),
		streamCh: make(chan domain.QueueSnapshot, 4),
	}
	for _, n := range orders {
		f.snapshot = append(f.snapshot, domain.OrderRecord{OrderNumber: n})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /all_orders", f.withAuth(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(f.snapshot)
	}))
	mux.HandleFunc("GET /sse", f.withAuth(f.handleStream))
	mux.HandleFunc("POST /order_completed/{n}", f.withAuth(func(w http.ResponseWriter, r *http.Request) {
		var n domain.OrderNumber
		_, _ = fmt.Sscanf(r.PathValue("n"), "%d", &n)
		f.mu.Lock()
		f.completed = append(f.completed, n)
		f.mu.Unlock()
	}))
	// Webhook-маршрут не требует ключа, как и на настоящем сервере.
	mux.HandleFunc("POST /new_order", func(w http.ResponseWriter, r *http.Request) {
		var payload domain.OrderPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		f.mu.Lock()
		f.submitted = append(f.submitted, payload.OrderNumber)
		f.mu.Unlock()
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeServer) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		ok := r.Header.Get("Authorization") == f.validKey
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (f *fakeServer) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher := w.(http.Flusher)
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	f.mu.Lock()
	ch := f.streamCh
	f.mu.Unlock()

	for {
		select {
		case <-r.Context().Done():
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			payload, _ := json.Marshal(domain.StreamEvent{BreaksUpdated: snap})
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

func (f *fakeServer) push(orders ...domain.OrderNumber) {
	snap := make(domain.QueueSnapshot, 0, len(orders))
	for _, n := range orders {
		snap = append(snap, domain.OrderRecord{OrderNumber: n})
	}
	f.mu.Lock()
	ch := f.streamCh
	f.mu.Unlock()
	ch <- snap
}

// dropStream закрывает текущий поток, имитируя разрыв со стороны сервера.
func (f *fakeServer) dropStream() {
	f.mu.Lock()
	close(f.streamCh)
	f.streamCh = make(chan domain.QueueSnapshot, 4)
	f.mu.Unlock()
}

func (f *fakeServer) rotateKey(key string) {
	f.mu.Lock()
	f.validKey = key
	f.mu.Unlock()
}

func testLogger() *log.Entry {
	l := log.New()
	l.SetLevel(log.PanicLevel)
	return log.NewEntry(l)
}

func numbers(snap domain.QueueSnapshot) []domain.OrderNumber {
	out := make([]domain.OrderNumber, 0, len(snap))
	for _, rec := range snap {
		out = append(out, rec.OrderNumber)
	}
	return out
}

func awaitSnapshot(t *testing.T, c *Client) domain.QueueSnapshot {
	t.Helper()
	select {
	case snap := <-c.Updates():
		return snap
	case <-time.After(5 * time.Second):
		t.Fatal("не дождались снапшота от клиента")
		return nil
	}
}

func awaitState(t *testing.T, c *Client, want State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("клиент не перешёл в %s, остался в %s", want, c.State())
}

func TestClientConnectsAndReceivesUpdates(t *testing.T) {
	f := newFakeServer(t, 5, 6)

	c := New(Config{BaseURL: f.srv.URL, Username: "operator", Key: "secret"}, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	require.Equal(t, []domain.OrderNumber{5, 6}, numbers(awaitSnapshot(t, c)))
	awaitState(t, c, StateConnected)

	f.push(6)
	require.Equal(t, []domain.OrderNumber{6}, numbers(awaitSnapshot(t, c)))
}

func TestClientActionRequiresConnection(t *testing.T) {
	f := newFakeServer(t, 5)

	c := New(Config{BaseURL: f.srv.URL, Username: "operator", Key: "secret"}, testLogger())
	require.ErrorIs(t, c.Complete(context.Background(), 5), ErrNotConnected)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)
	awaitSnapshot(t, c)
	awaitState(t, c, StateConnected)

	require.NoError(t, c.Complete(context.Background(), 5))
	f.mu.Lock()
	defer f.mu.Unlock()
	require.Equal(t, []domain.OrderNumber{5}, f.completed)
}

func TestClientSubmitsOrder(t *testing.T) {
	f := newFakeServer(t, 5)

	order := domain.OrderPayload{
		OrderNumber: 7,
		LineItems:   []domain.LineItem{{Quantity: 1, Name: "booster box"}},
	}

	c := New(Config{BaseURL: f.srv.URL, Username: "operator", Key: "secret"}, testLogger())
	require.ErrorIs(t, c.Submit(context.Background(), order), ErrNotConnected)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)
	awaitSnapshot(t, c)
	awaitState(t, c, StateConnected)

	require.NoError(t, c.Submit(context.Background(), order))
	f.mu.Lock()
	defer f.mu.Unlock()
	require.Equal(t, []domain.OrderNumber{7}, f.submitted)
}

func TestClientWaitsForNewCredentialAfterRejection(t *testing.T) {
	f := newFakeServer(t, 5)

	c := New(Config{BaseURL: f.srv.URL, Username: "operator", Key: "wrong"}, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	awaitState(t, c, StateAwaitingCredentials)

	c.SetCredential("operator", "secret")
	require.Equal(t, []domain.OrderNumber{5}, numbers(awaitSnapshot(t, c)))
	awaitState(t, c, StateConnected)
}

func TestClientStartsAwaitingWithoutKey(t *testing.T) {
	f := newFakeServer(t, 7)

	c := New(Config{BaseURL: f.srv.URL}, testLogger())
	require.Equal(t, StateAwaitingCredentials, c.State())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	c.SetCredential("operator", "secret")
	require.Equal(t, []domain.OrderNumber{7}, numbers(awaitSnapshot(t, c)))
}

func TestClientReconnectsAfterServerDrop(t *testing.T) {
	f := newFakeServer(t, 5)

	var mu sync.Mutex
	var seen []State
	c := New(Config{
		BaseURL:  f.srv.URL,
		Username: "operator",
		Key:      "secret",
		OnStateChange: func(s State) {
			mu.Lock()
			seen = append(seen, s)
			mu.Unlock()
		},
	}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	awaitSnapshot(t, c)
	awaitState(t, c, StateConnected)

	// Сервер закрывает поток; клиент обязан переподключиться сам и
	// заново принести полный снапшот.
	f.dropStream()

	require.Equal(t, []domain.OrderNumber{5}, numbers(awaitSnapshot(t, c)))
	awaitState(t, c, StateConnected)

	mu.Lock()
	defer mu.Unlock()
	require.Contains(t, seen, StateDisconnected)
}
