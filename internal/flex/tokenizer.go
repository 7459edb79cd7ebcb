package flex

import (
	"context"
	"encoding/json"
	"math"
	"reflect"
	"sync"

	"github.com/congo-pay/flex_checkout/internal/cardform"
)

// EncryptionRSAOAEP256 is the only encryption mode used for card data.
const EncryptionRSAOAEP256 = "rsaoaep256"

// Request is the argument of a single tokenization call.
type Request struct {
	KID            string
	Keystore       SigningKey
	CardInfo       cardform.CardInput
	EncryptionType string
	Production     bool
}

// Response is the raw payload delivered to the SDK callback. A truthy
// "error" member marks a failed tokenization; nil, false, "", zero and NaN
// are falsy.
type Response map[string]any

// Token is a successful tokenization payload.
type Token map[string]any

// SDK is a callback-style tokenization call. Implementations call done
// once with the outcome; extra calls are ignored by Tokenizer.
type SDK interface {
	CreateToken(ctx context.Context, req Request, done func(Response))
}

// Error carries the error value reported by the SDK, untransformed.
type Error struct {
	Value any
}

func (e *Error) Error() string {
	if s, ok := e.Value.(string); ok {
		return "tokenize: " + s
	}
	b, err := json.Marshal(e.Value)
	if err != nil {
		return "tokenize: unprintable error"
	}
	return "tokenize: " + string(b)
}

// Tokenizer turns the callback SDK into a blocking call.
type Tokenizer struct {
	sdk        SDK
	production bool
}

// NewTokenizer wraps sdk. Tokens are created in the test environment unless
// production is set.
func NewTokenizer(sdk SDK, production bool) *Tokenizer {
	return &Tokenizer{sdk: sdk, production: production}
}

// Tokenize invokes the SDK once and waits for its first callback.
func (t *Tokenizer) Tokenize(ctx context.Context, key SigningKey, card cardform.CardInput) (Token, error) {
	results := make(chan Response, 1)
	var once sync.Once

	t.sdk.CreateToken(ctx, Request{
		KID:            key.KID,
		Keystore:       key,
		CardInfo:       card,
		EncryptionType: EncryptionRSAOAEP256,
		Production:     t.production,
	}, func(resp Response) {
		once.Do(func() { results <- resp })
	})

	select {
	case resp := <-results:
		if v, failed := errorValue(resp); failed {
			return nil, &Error{Value: v}
		}
		return Token(resp), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func errorValue(resp Response) (any, bool) {
	v, ok := resp["error"]
	if !ok {
		return nil, false
	}
	switch x := v.(type) {
	case nil:
		return nil, false
	case bool:
		return v, x
	case string:
		return v, x != ""
	case json.Number:
		f, err := x.Float64()
		return v, err != nil || (f != 0 && !math.IsNaN(f))
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v, rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v, rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return v, f != 0 && !math.IsNaN(f)
	}
	return v, true
}
