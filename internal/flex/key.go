package flex

import (
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"

	jose "github.com/go-jose/go-jose/v4"
)

// ErrInvalidKey indicates the signing key cannot be used for encryption.
var ErrInvalidKey = errors.New("invalid signing key")

// SigningKey is the JWK handed out by the checkout backend for a single
// submission. It is kept verbatim so it can be passed on as the keystore.
type SigningKey struct {
	KID string
	raw json.RawMessage
}

// ParseSigningKey decodes a JWK document.
func ParseSigningKey(data []byte) (SigningKey, error) {
	var k SigningKey
	if err := json.Unmarshal(data, &k); err != nil {
		return SigningKey{}, err
	}
	return k, nil
}

// UnmarshalJSON keeps the raw document and extracts the key id.
func (k *SigningKey) UnmarshalJSON(data []byte) error {
	var head struct {
		KID string `json:"kid"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return fmt.Errorf("decode jwk: %w", err)
	}
	k.KID = head.KID
	k.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON returns the document the key was decoded from.
func (k SigningKey) MarshalJSON() ([]byte, error) {
	if len(k.raw) == 0 {
		return []byte("null"), nil
	}
	return k.raw, nil
}

// PublicKey returns the RSA public key carried by the JWK.
func (k SigningKey) PublicKey() (*rsa.PublicKey, error) {
	if len(k.raw) == 0 {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	var jwk jose.JSONWebKey
	if err := jwk.UnmarshalJSON(k.raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	pub, ok := jwk.Key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: expected RSA public key, got %T", ErrInvalidKey, jwk.Key)
	}
	return pub, nil
}
