// Package bank предоставляет клиент шлюза проверки банковских переводов.
package bank

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Статусы перевода по данным банковского шлюза.
const (
	StatusReceived  = "RECEIVED"
	StatusPending   = "PENDING"
	StatusConfirmed = "CONFIRMED"
	StatusNotFound  = "NOT_FOUND"
	StatusMismatch  = "MISMATCH"
)

// Client инкапсулирует HTTP-взаимодействие с банковским шлюзом.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// TransferStatus описывает состояние одного перевода.
type TransferStatus struct {
	Receipt string `json:"receipt"`
	Status  string `json:"status"`
	Amount  *int64 `json:"amount,omitempty"`
}

// NewClient создаёт HTTP-клиент для обращения к банковскому шлюзу по указанному адресу.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// GetTransferStatus запрашивает состояние перевода по номеру квитанции.
// При ответе 429 возвращается длительность из заголовка Retry-After.
func (c *Client) GetTransferStatus(ctx context.Context, receipt string) (*TransferStatus, int, time.Duration, error) {
	if c == nil || c.baseURL == "" {
		return nil, 0, 0, fmt.Errorf("bank client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	url := fmt.Sprintf("%s/api/transfers/%s", base, receipt)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := time.Duration(0)
		if v := resp.Header.Get("Retry-After"); v != "" {
			if seconds, parseErr := strconv.Atoi(v); parseErr == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return nil, resp.StatusCode, retryAfter, nil
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil, resp.StatusCode, 0, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, 0, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result TransferStatus
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, resp.StatusCode, 0, fmt.Errorf("decode response: %w", err)
	}

	return &result, resp.StatusCode, 0, nil
}
