package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/congo-pay/flex_checkout/internal/backend"
	"github.com/congo-pay/flex_checkout/internal/cardform"
	"github.com/congo-pay/flex_checkout/internal/flex"
	"github.com/congo-pay/flex_checkout/internal/journal"
)

type stubBackend struct {
	mu          sync.Mutex
	key         flex.SigningKey
	keyErr      error
	receipt     backend.Receipt
	receiptErr  error
	keyCalls    int
	lastReceipt backend.ReceiptRequest
}

func (b *stubBackend) SigningKey(context.Context) (flex.SigningKey, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.keyCalls++
	return b.key, b.keyErr
}

func (b *stubBackend) PostReceipt(_ context.Context, in backend.ReceiptRequest) (backend.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastReceipt = in
	return b.receipt, b.receiptErr
}

type sdkFunc func(req flex.Request, done func(flex.Response))

func (f sdkFunc) CreateToken(_ context.Context, req flex.Request, done func(flex.Response)) {
	f(req, done)
}

func scenarioCard() cardform.CardInput {
	return cardform.CardInput{
		CardType:     "001",
		CardNumber:   "4111111111111111",
		SecurityCode: "111",
		ExpiryMonth:  "01",
		ExpiryYear:   "2026",
	}
}

func scenarioKey(t *testing.T) flex.SigningKey {
	t.Helper()
	key, err := flex.ParseSigningKey([]byte(`{"kty":"RSA","kid":"kid-1","n":"AQAB","e":"AQAB"}`))
	if err != nil {
		t.Fatalf("parse key: %v", err)
	}
	return key
}

func newTestService(t *testing.T, b Backend, sdk flex.SDK, attempts journal.Repository) *Service {
	t.Helper()
	svc, err := NewService(b, flex.NewTokenizer(sdk, false), nil, attempts, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestSubmitSuccessScenario(t *testing.T) {
	b := &stubBackend{key: scenarioKey(t), receipt: backend.Receipt{"id": "rcpt_1"}}
	sdk := sdkFunc(func(_ flex.Request, done func(flex.Response)) {
		done(flex.Response{"token": "tok_abc"})
	})
	svc := newTestService(t, b, sdk, nil)
	ctx := context.Background()

	got := svc.Submit(ctx, "s1", scenarioCard())
	want := Outcome{
		Data:    scenarioCard(),
		Token:   flex.Token{"token": "tok_abc"},
		Receipt: backend.Receipt{"id": "rcpt_1"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("outcome mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff(backend.ReceiptRequest{CardInput: scenarioCard(), FlexResponse: flex.Token{"token": "tok_abc"}}, b.lastReceipt); diff != "" {
		t.Fatalf("receipt request mismatch (-want +got):\n%s", diff)
	}

	stored, ok, err := svc.Last(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("expected stored outcome, ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff(want, stored); diff != "" {
		t.Fatalf("stored outcome mismatch (-want +got):\n%s", diff)
	}
	state, _ := svc.State(ctx, "s1")
	if state != StateSuccess {
		t.Fatalf("expected success state, got %s", state)
	}
}

func TestSubmitTokenizationFailureScenario(t *testing.T) {
	b := &stubBackend{key: scenarioKey(t), receipt: backend.Receipt{"id": "never"}}
	sdk := sdkFunc(func(_ flex.Request, done func(flex.Response)) {
		done(flex.Response{"error": "invalid_card"})
	})
	svc := newTestService(t, b, sdk, nil)

	got := svc.Submit(context.Background(), "s1", scenarioCard())
	want := Outcome{Data: scenarioCard(), Error: "invalid_card"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("outcome mismatch (-want +got):\n%s", diff)
	}
	if b.lastReceipt.CardNumber != "" {
		t.Fatal("receipt must not be posted after a tokenization failure")
	}
	state, _ := svc.State(context.Background(), "s1")
	if state != StateFailed {
		t.Fatalf("expected failed state, got %s", state)
	}
}

func TestSubmitReceiptFailureCollapsesToErrorShape(t *testing.T) {
	b := &stubBackend{key: scenarioKey(t), receiptErr: &backend.StatusError{Op: "receipt", Status: 500, Body: "boom"}}
	sdk := sdkFunc(func(_ flex.Request, done func(flex.Response)) { done(flex.Response{"token": "tok_abc"}) })
	svc := newTestService(t, b, sdk, nil)

	got := svc.Submit(context.Background(), "s1", scenarioCard())
	if got.Token != nil || got.Receipt != nil || got.Stage != "" {
		t.Fatalf("partial outcome leaked: %+v", got)
	}
	if got.Error != "receipt status=500 body=boom" {
		t.Fatalf("unexpected error value: %#v", got.Error)
	}
}

func TestSubmitSigningKeyFailureIsThirdKind(t *testing.T) {
	b := &stubBackend{keyErr: errors.New("checkout: connection refused")}
	called := false
	sdk := sdkFunc(func(_ flex.Request, done func(flex.Response)) {
		called = true
		done(flex.Response{"token": "x"})
	})
	svc := newTestService(t, b, sdk, nil)

	got := svc.Submit(context.Background(), "s1", scenarioCard())
	want := Outcome{Data: scenarioCard(), Error: "checkout: connection refused", Stage: StageSigningKey}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("outcome mismatch (-want +got):\n%s", diff)
	}
	if called {
		t.Fatal("tokenizer must not run without a signing key")
	}
}

func TestSubmitFetchesFreshKeyEachTime(t *testing.T) {
	b := &stubBackend{key: scenarioKey(t), receipt: backend.Receipt{"id": "r"}}
	sdk := sdkFunc(func(_ flex.Request, done func(flex.Response)) { done(flex.Response{"token": "t"}) })
	svc := newTestService(t, b, sdk, nil)

	svc.Submit(context.Background(), "s1", scenarioCard())
	svc.Submit(context.Background(), "s1", scenarioCard())
	if b.keyCalls != 2 {
		t.Fatalf("expected 2 key fetches, got %d", b.keyCalls)
	}
}

func TestSubmitExactlyOneOutcomeKind(t *testing.T) {
	cases := []struct {
		name string
		b    *stubBackend
		resp flex.Response
	}{
		{"success", &stubBackend{receipt: backend.Receipt{"id": "r"}}, flex.Response{"token": "t"}},
		{"token failure", &stubBackend{}, flex.Response{"error": "declined"}},
		{"receipt failure", &stubBackend{receiptErr: errors.New("down")}, flex.Response{"token": "t"}},
		{"key failure", &stubBackend{keyErr: errors.New("down")}, flex.Response{"token": "t"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := tc.resp
			sdk := sdkFunc(func(_ flex.Request, done func(flex.Response)) { done(resp) })
			o := newTestService(t, tc.b, sdk, nil).Submit(context.Background(), "s", scenarioCard())
			success := o.Token != nil && o.Receipt != nil
			if success == o.Failed() {
				t.Fatalf("expected exactly one outcome kind, got %+v", o)
			}
			if o.Data != scenarioCard() {
				t.Fatalf("outcome must carry submitted data, got %+v", o.Data)
			}
		})
	}
}

func TestStateSubmittingWhileInFlight(t *testing.T) {
	b := &stubBackend{key: scenarioKey(t), receipt: backend.Receipt{"id": "r"}}
	release := make(chan struct{})
	entered := make(chan struct{})
	sdk := sdkFunc(func(_ flex.Request, done func(flex.Response)) {
		go func() {
			close(entered)
			<-release
			done(flex.Response{"token": "t"})
		}()
	})
	svc := newTestService(t, b, sdk, nil)
	ctx := context.Background()

	if st, _ := svc.State(ctx, "s1"); st != StateIdle {
		t.Fatalf("expected idle, got %s", st)
	}

	finished := make(chan Outcome)
	go func() { finished <- svc.Submit(ctx, "s1", scenarioCard()) }()
	<-entered
	if st, _ := svc.State(ctx, "s1"); st != StateSubmitting {
		t.Fatalf("expected submitting, got %s", st)
	}
	close(release)
	<-finished
	if st, _ := svc.State(ctx, "s1"); st != StateSuccess {
		t.Fatalf("expected success, got %s", st)
	}
}

func TestOverlappingSubmissionsLastWriterWins(t *testing.T) {
	b := &stubBackend{key: scenarioKey(t), receipt: backend.Receipt{"id": "r"}}
	firstRelease := make(chan struct{})
	sdk := sdkFunc(func(req flex.Request, done func(flex.Response)) {
		if req.CardInfo.ExpiryMonth == "01" {
			go func() {
				<-firstRelease
				done(flex.Response{"token": "slow"})
			}()
			return
		}
		done(flex.Response{"token": "fast"})
	})
	svc := newTestService(t, b, sdk, nil)
	ctx := context.Background()

	slowDone := make(chan struct{})
	go func() {
		svc.Submit(ctx, "s1", scenarioCard())
		close(slowDone)
	}()

	fast := scenarioCard()
	fast.ExpiryMonth = "02"
	svc.Submit(ctx, "s1", fast)
	close(firstRelease)
	<-slowDone

	last, _, _ := svc.Last(ctx, "s1")
	if last.Token["token"] != "slow" {
		t.Fatalf("expected the later-finishing submission to own the slot, got %v", last.Token)
	}
}

func TestSubmitJournalsMaskedAttempt(t *testing.T) {
	repo := journal.NewMemoryRepository()
	b := &stubBackend{key: scenarioKey(t), receipt: backend.Receipt{"id": "rcpt_1"}}
	sdk := sdkFunc(func(_ flex.Request, done func(flex.Response)) { done(flex.Response{"token": "t"}) })
	svc := newTestService(t, b, sdk, repo)
	ctx := context.Background()

	svc.Submit(ctx, "s1", scenarioCard())
	b.keyErr = errors.New("down")
	svc.Submit(ctx, "s1", scenarioCard())

	attempts, err := svc.Attempts(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("attempts: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(attempts))
	}
	if attempts[0].Result != journal.ResultFailed || attempts[0].Stage != string(StageSigningKey) {
		t.Fatalf("unexpected latest attempt: %+v", attempts[0])
	}
	if attempts[1].Result != journal.ResultSuccess || attempts[1].ReceiptID != "rcpt_1" || attempts[1].Last4 != "1111" {
		t.Fatalf("unexpected first attempt: %+v", attempts[1])
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(nil, flex.NewTokenizer(nil, false), nil, nil, nil); err == nil {
		t.Fatal("expected error without backend")
	}
	if _, err := NewService(&stubBackend{}, nil, nil, nil, nil); err == nil {
		t.Fatal("expected error without tokenizer")
	}
}
