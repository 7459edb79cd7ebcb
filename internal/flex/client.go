package flex

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// TestBaseURL hosts the Flex test environment.
	TestBaseURL = "https://testflex.cybersource.com"
	// ProductionBaseURL hosts the Flex production environment.
	ProductionBaseURL = "https://flex.cybersource.com"

	tokensPath = "/cybersource/flex/v1/tokens"
)

// Client talks to the Flex token endpoint. It implements SDK.
type Client struct {
	Base string
	HTTP *http.Client
}

// NewClient builds a Flex client. An empty base selects the test or
// production host per request.
func NewClient(base string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{Base: strings.TrimRight(base, "/"), HTTP: hc}
}

type tokenRequest struct {
	KeyID    string   `json:"keyId"`
	CardInfo cardInfo `json:"cardInfo"`
}

type cardInfo struct {
	CardNumber          string `json:"cardNumber"`
	CardSecurityCode    string `json:"cardSecurityCode,omitempty"`
	CardType            string `json:"cardType"`
	CardExpirationMonth string `json:"cardExpirationMonth"`
	CardExpirationYear  string `json:"cardExpirationYear"`
}

// CreateToken encrypts the card data with the signing key and posts it to
// Flex on its own goroutine, reporting through done.
func (c *Client) CreateToken(ctx context.Context, req Request, done func(Response)) {
	go func() {
		done(c.createToken(ctx, req))
	}()
}

func (c *Client) createToken(ctx context.Context, req Request) Response {
	if req.EncryptionType != EncryptionRSAOAEP256 {
		return failure(fmt.Sprintf("unsupported encryption type %q", req.EncryptionType))
	}
	pub, err := req.Keystore.PublicKey()
	if err != nil {
		return failure(err.Error())
	}

	number, err := encrypt(pub, req.CardInfo.CardNumber)
	if err != nil {
		return failure(err.Error())
	}
	var code string
	if req.CardInfo.SecurityCode != "" {
		if code, err = encrypt(pub, req.CardInfo.SecurityCode); err != nil {
			return failure(err.Error())
		}
	}

	payload, err := json.Marshal(tokenRequest{
		KeyID: req.KID,
		CardInfo: cardInfo{
			CardNumber:          number,
			CardSecurityCode:    code,
			CardType:            string(req.CardInfo.CardType),
			CardExpirationMonth: req.CardInfo.ExpiryMonth,
			CardExpirationYear:  req.CardInfo.ExpiryYear,
		},
	})
	if err != nil {
		return failure(fmt.Sprintf("encode token request: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseFor(req.Production)+tokensPath, bytes.NewReader(payload))
	if err != nil {
		return failure(fmt.Sprintf("build token request: %v", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return failure(fmt.Sprintf("create token: %v", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return failure(fmt.Sprintf("read token response: %v", err))
	}

	if resp.StatusCode/100 != 2 {
		var reason any
		if err := json.Unmarshal(body, &reason); err != nil || reason == nil {
			reason = fmt.Sprintf("create token status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return Response{"error": reason}
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return failure(fmt.Sprintf("decode token response: %v", err))
	}
	return out
}

func (c *Client) baseFor(production bool) string {
	switch {
	case c.Base != "":
		return c.Base
	case production:
		return ProductionBaseURL
	default:
		return TestBaseURL
	}
}

func encrypt(pub *rsa.PublicKey, value string) (string, error) {
	sealed, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, []byte(value), nil)
	if err != nil {
		return "", fmt.Errorf("encrypt card data: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func failure(reason string) Response {
	return Response{"error": reason}
}
