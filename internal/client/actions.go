package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/breaks/internal/domain"
)

const actionTimeout = 5 * time.Second

// Complete помечает заказ выполненным. Вне состояния Connected действие
// отклоняется сразу, без накопления и повторной отправки.
func (c *Client) Complete(ctx context.Context, n domain.OrderNumber) error {
	return c.action(ctx, fmt.Sprintf("/order_completed/%d", n), nil)
}

// MoveUp поднимает заказ на одну позицию.
func (c *Client) MoveUp(ctx context.Context, n domain.OrderNumber) error {
	return c.action(ctx, fmt.Sprintf("/order/%d/move_up", n), nil)
}

// MoveDown опускает заказ на одну позицию.
func (c *Client) MoveDown(ctx context.Context, n domain.OrderNumber) error {
	return c.action(ctx, fmt.Sprintf("/order/%d/move_down", n), nil)
}

// Submit отправляет новый заказ тем же webhook-маршрутом, которым пользуется
// магазин. Нужен для ручного добавления заказа с дашборда.
func (c *Client) Submit(ctx context.Context, payload domain.OrderPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode order payload: %w", err)
	}
	return c.action(ctx, "/new_order", body)
}

// Rename меняет отображаемое имя заказа.
func (c *Client) Rename(ctx context.Context, n domain.OrderNumber, name string) error {
	body, err := json.Marshal(struct {
		Name *string `json:"Name"`
	}{Name: &name})
	if err != nil {
		return fmt.Errorf("encode rename body: %w", err)
	}
	return c.action(ctx, fmt.Sprintf("/update_order/%d", n), body)
}

func (c *Client) action(ctx context.Context, path string, body []byte) error {
	if c.State() != StateConnected {
		return ErrNotConnected
	}

	reqCtx, cancel := context.WithTimeout(ctx, actionTimeout)
	defer cancel()

	var reader *strings.Reader
	if body != nil {
		reader = strings.NewReader(string(body))
	}
	resp, err := c.do(reqCtx, http.MethodPost, path, reader)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return checkStatus(resp)
}
