package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/annel0/arcade-hub/internal/leaderboard"
)

// APIClient — тонкий HTTP-клиент игровой поверхности сервера.
// Сетевые сбои возвращаются вызывающему как есть: ретраи — решение
// уровня сессии (см. GameSession), не транспорта.
type APIClient struct {
	baseURL string
	http    *http.Client
}

// NewAPIClient создаёт клиент с таймаутом на запрос.
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type credentialsPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type submitPayload struct {
	Username string  `json:"username"`
	Score    float64 `json:"score"`
	Game     string  `json:"game"`
}

type apiResponse struct {
	Success  bool   `json:"success"`
	Username string `json:"username,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// postJSON отправляет тело и разбирает стандартный ответ сервера.
func (c *APIClient) postJSON(ctx context.Context, path string, payload interface{}) (*apiResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var out apiResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("некорректный ответ сервера (%d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := out.Error
		if msg == "" {
			msg = out.Message
		}
		return &out, fmt.Errorf("сервер отклонил запрос (%d): %s", resp.StatusCode, msg)
	}
	return &out, nil
}

// Register регистрирует новый аккаунт.
func (c *APIClient) Register(ctx context.Context, username, password string) error {
	_, err := c.postJSON(ctx, "/register", credentialsPayload{Username: username, Password: password})
	return err
}

// Login проверяет учетные данные.
func (c *APIClient) Login(ctx context.Context, username, password string) error {
	_, err := c.postJSON(ctx, "/login", credentialsPayload{Username: username, Password: password})
	return err
}

// SubmitScore отправляет результат игры.
func (c *APIClient) SubmitScore(ctx context.Context, username, game string, score float64) error {
	_, err := c.postJSON(ctx, "/leaderboard", submitPayload{Username: username, Score: score, Game: game})
	return err
}

// Leaderboard загружает таблицу рекордов, опционально по одной игре.
func (c *APIClient) Leaderboard(ctx context.Context, game string) ([]leaderboard.Entry, error) {
	endpoint := c.baseURL + "/leaderboard"
	if game != "" {
		endpoint += "?game=" + url.QueryEscape(game)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("сервер вернул статус %d", resp.StatusCode)
	}

	var entries []leaderboard.Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("некорректный ответ сервера: %w", err)
	}
	return entries, nil
}
