package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/taskhive/messaging-platform/pkg/logger"
)

// chunkSize is the provider's maximum batch size per request.
const chunkSize = 100

// ExpoClient talks to an Expo-compatible push HTTP API.
type ExpoClient struct {
	endpoint    string
	accessToken string
	httpClient  *http.Client
	logger      *logger.Logger
}

// NewExpoClient creates a client for the given API base URL.
func NewExpoClient(endpoint, accessToken string, log *logger.Logger) *ExpoClient {
	return &ExpoClient{
		endpoint:    endpoint,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		logger:      log,
	}
}

type sendResponse struct {
	Data []Ticket `json:"data"`
}

type receiptsRequest struct {
	IDs []string `json:"ids"`
}

type receiptsResponse struct {
	Data map[string]Receipt `json:"data"`
}

// Send submits messages in chunks. A failed chunk is logged and skipped
// so a partial failure does not block the remaining chunks; tickets for
// failed chunks are marked with StatusError.
func (c *ExpoClient) Send(ctx context.Context, messages []Message) ([]Ticket, error) {
	tickets := make([]Ticket, 0, len(messages))

	for start := 0; start < len(messages); start += chunkSize {
		end := start + chunkSize
		if end > len(messages) {
			end = len(messages)
		}
		chunk := messages[start:end]

		chunkTickets, err := c.sendChunk(ctx, chunk)
		if err != nil {
			c.logger.Error("push chunk failed",
				zap.Int("chunk_start", start),
				zap.Int("chunk_size", len(chunk)),
				zap.Error(err),
			)
			for range chunk {
				tickets = append(tickets, Ticket{Status: StatusError, Message: err.Error()})
			}
			continue
		}
		tickets = append(tickets, chunkTickets...)
	}

	return tickets, nil
}

func (c *ExpoClient) sendChunk(ctx context.Context, chunk []Message) ([]Ticket, error) {
	body, err := json.Marshal(chunk)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal push batch: %w", err)
	}

	resp, err := c.post(ctx, c.endpoint+"/push/send", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("push provider returned status %d", resp.StatusCode)
	}

	var parsed sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode push response: %w", err)
	}
	return parsed.Data, nil
}

// Receipts fetches delivery receipts for the given ticket ids.
func (c *ExpoClient) Receipts(ctx context.Context, ticketIDs []string) (map[string]Receipt, error) {
	body, err := json.Marshal(receiptsRequest{IDs: ticketIDs})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal receipt request: %w", err)
	}

	resp, err := c.post(ctx, c.endpoint+"/push/getReceipts", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("push provider returned status %d", resp.StatusCode)
	}

	var parsed receiptsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode receipt response: %w", err)
	}
	return parsed.Data, nil
}

func (c *ExpoClient) post(ctx context.Context, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
	return c.httpClient.Do(req)
}
