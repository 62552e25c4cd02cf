package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"campus-store/internal/dto"
)

// HTTPStatusClient consulta GET /orders/:orderId/status del backend.
type HTTPStatusClient struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTPStatusClient(baseURL, token string) *HTTPStatusClient {
	return &HTTPStatusClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (h *HTTPStatusClient) FetchStatus(ctx context.Context, orderID string) (*dto.PaymentStatusResponse, error) {
	endpoint := fmt.Sprintf("%s/orders/%s/status", h.baseURL, url.PathEscape(orderID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrOrderNotFound
	case http.StatusForbidden:
		return nil, ErrForbidden
	case http.StatusUnauthorized:
		return nil, ErrUnauthorized
	default:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var st dto.PaymentStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, err
	}
	return &st, nil
}
