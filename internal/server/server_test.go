package server_test

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/breaks/internal/broadcast"
	"github.com/vladislavdragonenkov/breaks/internal/domain"
	"github.com/vladislavdragonenkov/breaks/internal/metrics"
	"github.com/vladislavdragonenkov/breaks/internal/queue"
	"github.com/vladislavdragonenkov/breaks/internal/server"
	"github.com/vladislavdragonenkov/breaks/internal/storage/memory"
)

func testLogger() *log.Entry {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger.WithField("component", "server-test")
}

func newTestServer(t *testing.T) (*httptest.Server, *queue.Store) {
	t.Helper()

	bc := broadcast.New()
	t.Cleanup(bc.Close)

	qm := metrics.NewQueueMetrics()
	store := queue.New(memory.NewOrderRepository(), bc, nil, qm, testLogger())
	auth := memory.NewAuthKeyRepository(map[string]string{"operator": "s3cret"})

	srv := server.New(store, bc, auth, qm, testLogger())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, store
}

func credential(username, key string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + key))
}

func authorizedRequest(t *testing.T, method, url string, body io.Reader) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	req.Header.Set("Authorization", credential("operator", "s3cret"))
	return req
}

func orderJSON(n int, name string) []byte {
	payload := domain.OrderPayload{
		OrderNumber: domain.OrderNumber(n),
		LineItems:   []domain.LineItem{{Quantity: 1, Name: "booster box"}},
		CustomField: &domain.CustomField{Title: "twitch username", Value: name},
	}
	raw, _ := json.Marshal(payload)
	return raw
}

func TestNewOrder_AcceptsAndDeduplicates(t *testing.T) {
	ts, store := newTestServer(t)

	resp, err := http.Post(ts.URL+"/new_order", "application/json", bytes.NewReader(orderJSON(100, "alice")))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Повторная доставка — тоже 200, но записи не прибавилось.
	resp, err = http.Post(ts.URL+"/new_order", "application/json", bytes.NewReader(orderJSON(100, "alice")))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	require.Len(t, store.Snapshot(), 1)
}

func TestNewOrder_RejectsInvalidDocument(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/new_order", "application/json", strings.NewReader(`{"number": 0}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Post(ts.URL+"/new_order", "application/json", strings.NewReader(`not json`))
	require.NoError(t, err)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()
}

func TestProtectedRoutes_RequireCredential(t *testing.T) {
	ts, _ := newTestServer(t)

	// Без заголовка.
	resp, err := http.Get(ts.URL + "/all_orders")
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// С неверным ключом.
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/login", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", credential("operator", "wrong"))
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// С верным.
	resp, err = http.DefaultClient.Do(authorizedRequest(t, http.MethodGet, ts.URL+"/login", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestAllOrders_ReturnsServingOrder(t *testing.T) {
	ts, store := newTestServer(t)

	require.NoError(t, store.Append(mustPayload(orderJSON(1, "a"))))
	require.NoError(t, store.Append(mustPayload(orderJSON(2, "b"))))
	require.NoError(t, store.MoveUp(2))

	resp, err := http.DefaultClient.Do(authorizedRequest(t, http.MethodGet, ts.URL+"/all_orders", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var records []domain.OrderRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&records))
	require.Len(t, records, 2)
	require.Equal(t, domain.OrderNumber(2), records[0].OrderNumber)
	require.Equal(t, domain.OrderNumber(1), records[1].OrderNumber)
}

func TestOrderCompleted_StatusMapping(t *testing.T) {
	ts, store := newTestServer(t)
	require.NoError(t, store.Append(mustPayload(orderJSON(1, "a"))))

	resp, err := http.DefaultClient.Do(authorizedRequest(t, http.MethodPost, ts.URL+"/order_completed/1", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Второй раз — записи уже нет.
	resp, err = http.DefaultClient.Do(authorizedRequest(t, http.MethodPost, ts.URL+"/order_completed/1", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestMove_BoundaryYieldsConflict(t *testing.T) {
	ts, store := newTestServer(t)
	require.NoError(t, store.Append(mustPayload(orderJSON(1, "a"))))

	resp, err := http.DefaultClient.Do(authorizedRequest(t, http.MethodPost, ts.URL+"/order/1/move_up", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.DefaultClient.Do(authorizedRequest(t, http.MethodPost, ts.URL+"/order/1/move_down", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestUpdateOrder_Rename(t *testing.T) {
	ts, store := newTestServer(t)
	require.NoError(t, store.Append(mustPayload(orderJSON(1, "old"))))

	body := strings.NewReader(`{"Name": "new"}`)
	resp, err := http.DefaultClient.Do(authorizedRequest(t, http.MethodPost, ts.URL+"/update_order/1", body))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	snap := store.Snapshot()
	require.NotNil(t, snap[0].DisplayName)
	require.Equal(t, "new", *snap[0].DisplayName)

	resp, err = http.DefaultClient.Do(authorizedRequest(t, http.MethodPost, ts.URL+"/update_order/99", strings.NewReader(`{"Name": "x"}`)))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestEventStream_DeliversSnapshots(t *testing.T) {
	ts, store := newTestServer(t)
	require.NoError(t, store.Append(mustPayload(orderJSON(5, "e"))))
	require.NoError(t, store.Append(mustPayload(orderJSON(6, "f"))))

	resp, err := http.DefaultClient.Do(authorizedRequest(t, http.MethodGet, ts.URL+"/sse", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)

	// Подключившийся к очереди [5 6] подписчик сразу получает [5 6].
	event := readEvent(t, reader)
	require.Len(t, event.BreaksUpdated, 2)
	require.Equal(t, domain.OrderNumber(5), event.BreaksUpdated[0].OrderNumber)
	require.Equal(t, domain.OrderNumber(6), event.BreaksUpdated[1].OrderNumber)

	// Мутация доезжает тем же каналом.
	require.NoError(t, store.Remove(5))
	event = readEvent(t, reader)
	require.Len(t, event.BreaksUpdated, 1)
	require.Equal(t, domain.OrderNumber(6), event.BreaksUpdated[0].OrderNumber)
}

func readEvent(t *testing.T, reader *bufio.Reader) domain.StreamEvent {
	t.Helper()

	deadline := time.After(3 * time.Second)
	lines := make(chan string, 1)
	errs := make(chan error, 1)
	go func() {
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				errs <- err
				return
			}
			line = strings.TrimRight(line, "\n")
			if strings.HasPrefix(line, "data: ") {
				lines <- strings.TrimPrefix(line, "data: ")
				return
			}
		}
	}()

	select {
	case raw := <-lines:
		var event domain.StreamEvent
		require.NoError(t, json.Unmarshal([]byte(raw), &event))
		return event
	case err := <-errs:
		t.Fatalf("stream read failed: %v", err)
	case <-deadline:
		t.Fatal("timed out waiting for stream event")
	}
	return domain.StreamEvent{}
}

func mustPayload(raw []byte) domain.OrderPayload {
	var payload domain.OrderPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		panic(fmt.Sprintf("bad test payload: %v", err))
	}
	return payload
}
