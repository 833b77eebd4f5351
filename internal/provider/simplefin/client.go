package simplefin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/we-promise/sure-sub001/internal/provider"
)

// Client talks to a SimpleFIN bridge. The access URL carries the credentials,
// as issued during the claim exchange.
type Client struct {
	accessURL string
	client    *http.Client
}

func NewClient(accessURL string) *Client {
	return &Client{
		accessURL: accessURL,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

type accountsResponse struct {
	Errors   []string          `json:"errors"`
	Accounts []json.RawMessage `json:"accounts"`
}

func (c *Client) ListAccounts(ctx context.Context) ([]json.RawMessage, error) {
	resp, err := c.get(ctx, url.Values{"balances-only": {"1"}})
	if err != nil {
		return nil, err
	}

	return resp.Accounts, nil
}

func (c *Client) ListTransactions(ctx context.Context, providerAccountID string, start, end time.Time) ([]json.RawMessage, error) {
	params := url.Values{
		"account":    {providerAccountID},
		"start-date": {strconv.FormatInt(start.Unix(), 10)},
		"end-date":   {strconv.FormatInt(end.Unix(), 10)},
	}

	resp, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	// Transactions come nested inside their account payload.
	for _, raw := range resp.Accounts {
		var account struct {
			ID           string            `json:"id"`
			Transactions []json.RawMessage `json:"transactions"`
		}

		if err := json.Unmarshal(raw, &account); err != nil {
			return nil, fmt.Errorf("decoding account payload: %w", err)
		}

		if account.ID == providerAccountID {
			return account.Transactions, nil
		}
	}

	return nil, nil
}

func (c *Client) get(ctx context.Context, params url.Values) (*accountsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.accessURL+"/accounts?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, &provider.AuthError{Provider: Name, Reason: fmt.Sprintf("status %d from bridge", resp.StatusCode)}
	default:
		return nil, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	var decoded accountsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &decoded, nil
}
