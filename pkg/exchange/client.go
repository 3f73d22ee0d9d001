package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Product is a market listed on the gateway.
type Product struct {
	ProductID    uint32 `json:"product_id"`
	Symbol       string `json:"symbol"`
	MarkPrice    string `json:"mark_price"`
	IndexPrice   string `json:"index_price"`
	FundingRate  string `json:"funding_rate"`
	OpenInterest string `json:"open_interest"`
}

// Orderbook is a gateway depth snapshot: [price, size] string tuples.
type Orderbook struct {
	Bids      [][2]string `json:"bids"`
	Asks      [][2]string `json:"asks"`
	Timestamp int64       `json:"timestamp"`
}

// Position is an open position reported by the gateway.
type Position struct {
	ProductID        uint32 `json:"product_id"`
	Amount           string `json:"amount"`
	EntryPrice       string `json:"entry_price"`
	UnrealizedPnL    string `json:"unrealized_pnl"`
	LiquidationPrice string `json:"liquidation_price"`
}

// Client talks to the Nado gateway over HTTPS. It is safe for concurrent
// use; the maker bot still submits orders sequentially for nonce ordering.
type Client struct {
	endpoint string
	httpc    *http.Client
	log      *zap.SugaredLogger
}

func NewClient(endpoint string, timeout time.Duration, log *zap.SugaredLogger) *Client {
	return &Client{
		endpoint: endpoint,
		httpc:    &http.Client{Timeout: timeout},
		log:      log,
	}
}

// PlaceOrder submits a signed order. The returned response always carries
// the decoded body; the error is ErrNetwork for transport failures or
// ErrExchangeRejected for a non-success status.
func (c *Client) PlaceOrder(ctx context.Context, intent *OrderIntent, signature []byte) (*ExecuteResponse, error) {
	return c.execute(ctx, intent.Wire(signature))
}

// CancelProductOrders submits a signed product-wide cancellation.
func (c *Client) CancelProductOrders(ctx context.Context, intent *CancelIntent, signature []byte) (*ExecuteResponse, error) {
	return c.execute(ctx, intent.Wire(signature))
}

func (c *Client) execute(ctx context.Context, body interface{}) (*ExecuteResponse, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode execute body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/execute", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	var out ExecuteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrNetwork, err)
	}

	c.log.Debugw("execute_response", "status", out.Status, "digest", out.Digest())
	if err := out.Err(); err != nil {
		return &out, err
	}
	return &out, nil
}

// Products fetches the gateway's market list.
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	var out struct {
		Products []Product `json:"products"`
	}
	if err := c.get(ctx, "/products", nil, &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

// Orderbook fetches the current depth snapshot for one product.
func (c *Client) Orderbook(ctx context.Context, productID uint32) (*Orderbook, error) {
	q := url.Values{"product_id": []string{strconv.FormatUint(uint64(productID), 10)}}
	var out Orderbook
	if err := c.get(ctx, "/orderbook", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Positions fetches open positions for an owner address.
func (c *Client) Positions(ctx context.Context, owner common.Address) ([]Position, error) {
	q := url.Values{"address": []string{owner.Hex()}}
	var out struct {
		Positions []Position `json:"positions"`
	}
	if err := c.get(ctx, "/positions", q, &out); err != nil {
		return nil, err
	}
	return out.Positions, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.endpoint + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: HTTP %d: %s", ErrExchangeRejected, resp.StatusCode, bytes.TrimSpace(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrNetwork, path, err)
	}
	return nil
}
