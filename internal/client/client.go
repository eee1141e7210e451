// Package client реализует подписку дашборда на сервер breaks: машину
// состояний переподключения, чтение push-канала снапшотов и отправку
// операторских действий.
package client

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/breaks/internal/domain"
)

// ErrNotConnected возвращается операторским действиям вне состояния
// Connected. Локальная очередь с проигрыванием после переподключения
// сознательно не реализована: действие против состояния, которому клиент
// уже не доверяет, опаснее немедленного отказа.
var ErrNotConnected = errors.New("not connected to the breaks server")

// Config — параметры подключения клиента.
type Config struct {
	// BaseURL сервера, например http://localhost:3000.
	BaseURL string
	// Username и Key — учётные данные оператора. Пустой Key означает
	// старт в состоянии AwaitingCredentials.
	Username string
	Key      string
	// OnStateChange вызывается при каждом переходе (для индикатора
	// подключения). Может быть nil.
	OnStateChange func(State)
}

// Client — одно логическое подключение дашборда.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Entry

	mu         sync.Mutex
	state      State
	credential string

	onStateChange func(State)
	credSupplied  chan struct{}
	updates       chan domain.QueueSnapshot
}

// New создаёт клиента. Run нужно запустить отдельной горутиной.
func New(cfg Config, logger *log.Entry) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		// Без общего таймаута: /sse живёт часами. Отдельные запросы
		// ограничиваются контекстом.
		httpClient:    &http.Client{},
		logger:        logger,
		state:         StateDisconnected,
		onStateChange: cfg.OnStateChange,
		credSupplied:  make(chan struct{}, 1),
		updates:       make(chan domain.QueueSnapshot, 1),
	}
	if cfg.Key != "" {
		c.credential = encodeCredential(cfg.Username, cfg.Key)
	} else {
		c.state = StateAwaitingCredentials
	}
	return c
}

// Updates — канал снапшотов для слоя отрисовки. Каждое значение полностью
// заменяет локальное состояние; слияния нет, снапшот авторитетен.
func (c *Client) Updates() <-chan domain.QueueSnapshot {
	return c.updates
}

// State возвращает текущее состояние машины.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetCredential сохраняет новый ключ доступа и будит машину, если она
// ждала учётные данные.
func (c *Client) SetCredential(username, key string) {
	c.mu.Lock()
	c.credential = encodeCredential(username, key)
	c.mu.Unlock()

	select {
	case c.credSupplied <- struct{}{}:
	default:
	}
}

func encodeCredential(username, key string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + key))
}

func (c *Client) transition(e Event) State {
	c.mu.Lock()
	prev := c.state
	next := Transition(prev, e)
	c.state = next
	c.mu.Unlock()

	if next != prev {
		c.logger.WithFields(log.Fields{"from": prev, "to": next}).Info("смена состояния подключения")
		if c.onStateChange != nil {
			c.onStateChange(next)
		}
	}
	return next
}

// Run крутит машину состояний до отмены контекста. Из любого сетевого
// провала клиент выбирается сам; только отозванный ключ требует оператора.
func (c *Client) Run(ctx context.Context) {
	bo := newBackoff()

	if c.State() == StateDisconnected {
		c.transition(EventRetry)
	}

	for {
		if ctx.Err() != nil {
			return
		}

		switch c.State() {
		case StateAwaitingCredentials:
			select {
			case <-ctx.Done():
				return
			case <-c.credSupplied:
				bo.Reset()
				c.transition(EventCredentialSupplied)
			}

		case StateConnecting:
			c.connectOnce(ctx, bo)

		case StateConnected:
			// Недостижимо: connectOnce возвращается уже не в Connected.
			c.transition(EventStreamClosed)

		case StateDisconnected:
			select {
			case <-ctx.Done():
				return
			case <-time.After(bo.Next()):
				c.transition(EventRetry)
			}
		}
	}
}

// connectOnce выполняет одну попытку: начальный снапшот, затем stream до
// разрыва. Все исходы сводятся к событию для машины состояний.
func (c *Client) connectOnce(ctx context.Context, bo *backoff) {
	snap, err := c.fetchAllOrders(ctx)
	if err != nil {
		c.failConnect(err)
		return
	}

	resp, err := c.openStream(ctx)
	if err != nil {
		c.failConnect(err)
		return
	}
	defer resp.Body.Close()

	bo.Reset()
	c.transition(EventOpened)
	c.deliver(ctx, snap)

	if err := c.readStream(ctx, resp); err != nil {
		c.logger.WithError(err).Info("event stream оборвался")
	}
	c.transition(EventStreamClosed)
}

func (c *Client) failConnect(err error) {
	if domain.IsUnauthorized(err) {
		c.logger.Info("сервер отверг ключ доступа, ждём новый")
		c.transition(EventUnauthorized)
		return
	}
	c.logger.WithError(err).Info("подключение не удалось")
	c.transition(EventConnectFailed)
}

// fetchAllOrders забирает полное состояние очереди до первого значения
// push-канала, чтобы дашборду было что рисовать сразу.
func (c *Client) fetchAllOrders(ctx context.Context) (domain.QueueSnapshot, error) {
	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	resp, err := c.do(reqCtx, http.MethodGet, "/all_orders", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var snap domain.QueueSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode all orders: %w", err)
	}
	return snap, nil
}

func (c *Client) openStream(ctx context.Context) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sse", nil)
	if err != nil {
		return nil, fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Authorization", c.currentCredential())
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open event stream: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// readStream разбирает text/event-stream построчно: кадры data несут
// события, комментарии keep-alive и пустые строки пропускаются.
func (c *Client) readStream(ctx context.Context, resp *http.Response) error {
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var event domain.StreamEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			return fmt.Errorf("decode stream event: %w", err)
		}
		c.deliver(ctx, event.BreaksUpdated)
	}
	return scanner.Err()
}

// deliver передаёт снапшот слою отрисовки, вытесняя невостребованный
// предыдущий: отрисовке нужно только последнее состояние.
func (c *Client) deliver(ctx context.Context, snap domain.QueueSnapshot) {
	if ctx.Err() != nil {
		return
	}
	select {
	case <-c.updates:
	default:
	}
	select {
	case c.updates <- snap:
	default:
	}
}

func (c *Client) currentCredential() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.credential
}

func (c *Client) do(ctx context.Context, method, path string, body *strings.Reader) (*http.Response, error) {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", c.currentCredential())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, resp.Request.URL.Path)
	default:
		return nil
	}
}
