package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/congo-pay/flex_checkout/internal/backend"
	"github.com/congo-pay/flex_checkout/internal/cardform"
	"github.com/congo-pay/flex_checkout/internal/checkout"
	"github.com/congo-pay/flex_checkout/internal/flex"
	"github.com/congo-pay/flex_checkout/internal/prompt"
)

type stubBackend struct{ key flex.SigningKey }

func (b stubBackend) SigningKey(context.Context) (flex.SigningKey, error) { return b.key, nil }

func (b stubBackend) PostReceipt(context.Context, backend.ReceiptRequest) (backend.Receipt, error) {
	return backend.Receipt{"id": "rcpt_1"}, nil
}

type stubSDK struct {
	resp flex.Response
	seen *flex.Request
}

func (s stubSDK) CreateToken(_ context.Context, req flex.Request, done func(flex.Response)) {
	*s.seen = req
	done(s.resp)
}

// acceptDriver takes every offered default.
type acceptDriver struct{}

func (acceptDriver) Input(_ context.Context, cfg prompt.InputConfig) (string, error) {
	return cfg.Default, nil
}

func (acceptDriver) Select(_ context.Context, cfg prompt.SelectConfig) (int, error) {
	return cfg.DefaultIndex, nil
}

type abortDriver struct{ acceptDriver }

func (abortDriver) Select(context.Context, prompt.SelectConfig) (int, error) {
	return 0, prompt.ErrAborted
}

func newService(t *testing.T, resp flex.Response, seen *flex.Request) *checkout.Service {
	t.Helper()
	key, err := flex.ParseSigningKey([]byte(`{"kty":"RSA","kid":"kid-1","n":"AQAB","e":"AQAB"}`))
	if err != nil {
		t.Fatalf("parse key: %v", err)
	}
	svc, err := checkout.NewService(stubBackend{key: key}, flex.NewTokenizer(stubSDK{resp: resp, seen: seen}, false), nil, nil, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func fixedClock() time.Time { return time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC) }

func TestRunPrintsSuccessTree(t *testing.T) {
	var seen flex.Request
	svc := newService(t, flex.Response{"token": "tok_abc"}, &seen)
	var out strings.Builder

	code := run(context.Background(), svc, acceptDriver{}, "", "cli", cardform.Clock(fixedClock), &out)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, out.String())
	}
	for _, want := range []string{"root: {} 3 keys\n", `  token: "tok_abc"`, `  id: "rcpt_1"`, `cardNumber: "4111111111111111"`} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("output missing %q:\n%s", want, out.String())
		}
	}
	if seen.CardInfo.ExpiryYear != "2026" || seen.CardInfo.ExpiryMonth != "03" {
		t.Fatalf("unexpected defaults submitted: %+v", seen.CardInfo)
	}
}

func TestRunFailureExitCode(t *testing.T) {
	var seen flex.Request
	svc := newService(t, flex.Response{"error": "invalid_card"}, &seen)
	var out strings.Builder

	code := run(context.Background(), svc, acceptDriver{}, "", "cli", cardform.Clock(fixedClock), &out)
	if code != exitFailed {
		t.Fatalf("expected exit %d, got %d", exitFailed, code)
	}
	if !strings.Contains(out.String(), `error: "invalid_card"`) {
		t.Fatalf("output missing error:\n%s", out.String())
	}
}

func TestRunAppliesDefaultsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "card.yaml")
	if err := os.WriteFile(path, []byte("cardType: \"002\"\ncardNumber: \"5555555555554444\"\n"), 0o600); err != nil {
		t.Fatalf("write defaults: %v", err)
	}
	var seen flex.Request
	svc := newService(t, flex.Response{"token": "t"}, &seen)
	var out strings.Builder

	if code := run(context.Background(), svc, acceptDriver{}, path, "cli", cardform.Clock(fixedClock), &out); code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, out.String())
	}
	if seen.CardInfo.CardType != cardform.CardTypeMastercard || seen.CardInfo.CardNumber != "5555555555554444" {
		t.Fatalf("defaults file not applied: %+v", seen.CardInfo)
	}
	if seen.CardInfo.SecurityCode != "111" {
		t.Fatalf("unset fields must keep built-in defaults: %+v", seen.CardInfo)
	}
}

func TestRunAborted(t *testing.T) {
	var seen flex.Request
	svc := newService(t, flex.Response{"token": "t"}, &seen)
	var out strings.Builder

	if code := run(context.Background(), svc, abortDriver{}, "", "cli", cardform.Clock(fixedClock), &out); code != 130 {
		t.Fatalf("expected exit 130, got %d", code)
	}
	if seen.KID != "" {
		t.Fatal("nothing must be submitted after an abort")
	}
}
