package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/congo-pay/flex_checkout/internal/cardform"
	"github.com/congo-pay/flex_checkout/internal/flex"
)

const (
	checkoutPath = "/api/checkout"
	receiptPath  = "/api/receipt"
)

// Receipt is the backend's record of a payment attempt. Its shape is owned
// by the backend.
type Receipt map[string]any

// ReceiptRequest is the body posted to the receipt endpoint: the five card
// fields followed by the tokenizer response.
type ReceiptRequest struct {
	cardform.CardInput
	FlexResponse flex.Token `json:"flexresponse"`
}

// StatusError reports a non-2xx reply from the backend.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s status=%d body=%s", e.Op, e.Status, e.Body)
}

// Client calls the checkout backend.
type Client struct {
	Base string
	HTTP *http.Client
}

// New builds a backend client. A nil hc uses an http.Client without timeout.
func New(base string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{Base: strings.TrimRight(base, "/"), HTTP: hc}
}

// SigningKey fetches a fresh signing key for one submission.
func (c *Client) SigningKey(ctx context.Context) (flex.SigningKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base+checkoutPath, nil)
	if err != nil {
		return flex.SigningKey{}, fmt.Errorf("build checkout request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req, "checkout")
	if err != nil {
		return flex.SigningKey{}, err
	}
	key, err := flex.ParseSigningKey(body)
	if err != nil {
		return flex.SigningKey{}, fmt.Errorf("decode checkout: %w", err)
	}
	return key, nil
}

// PostReceipt submits the card fields and token and decodes the receipt.
func (c *Client) PostReceipt(ctx context.Context, in ReceiptRequest) (Receipt, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode receipt request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+receiptPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build receipt request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req, "receipt")
	if err != nil {
		return nil, err
	}
	var receipt Receipt
	if err := json.Unmarshal(body, &receipt); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	return receipt, nil
}

func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", op, err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, &StatusError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}
