package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/congo-pay/flex_checkout/internal/backend"
	"github.com/congo-pay/flex_checkout/internal/cardform"
	"github.com/congo-pay/flex_checkout/internal/flex"
	"github.com/congo-pay/flex_checkout/internal/journal"
	"github.com/congo-pay/flex_checkout/internal/logging"
)

// Backend is the checkout backend: signing keys and receipts.
type Backend interface {
	SigningKey(ctx context.Context) (flex.SigningKey, error)
	PostReceipt(ctx context.Context, in backend.ReceiptRequest) (backend.Receipt, error)
}

// Tokenizer exchanges card data for a token.
type Tokenizer interface {
	Tokenize(ctx context.Context, key flex.SigningKey, card cardform.CardInput) (flex.Token, error)
}

// Service runs the submission flow and owns the per-slot outcome.
type Service struct {
	backend   Backend
	tokenizer Tokenizer
	outcomes  Store
	attempts  journal.Repository
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	inflight map[string]int
}

// NewService wires the flow. A nil store keeps outcomes in memory, a nil
// journal skips attempt records, a nil logger discards output.
func NewService(b Backend, tokenizer Tokenizer, outcomes Store, attempts journal.Repository, logger *slog.Logger) (*Service, error) {
	if b == nil {
		return nil, fmt.Errorf("backend is required")
	}
	if tokenizer == nil {
		return nil, fmt.Errorf("tokenizer is required")
	}
	if outcomes == nil {
		outcomes = NewMemoryStore(0)
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		backend:   b,
		tokenizer: tokenizer,
		outcomes:  outcomes,
		attempts:  attempts,
		logger:    logger,
		now:       time.Now,
		inflight:  make(map[string]int),
	}, nil
}

// Submit fetches a signing key, tokenizes the card, posts the receipt and
// stores the resulting outcome in slot. Steps run strictly in order and
// nothing is retried. Concurrent submissions on one slot are not
// coordinated: the last one to finish owns the slot.
func (s *Service) Submit(ctx context.Context, slot string, card cardform.CardInput) Outcome {
	start := s.now()
	s.begin(slot)
	defer s.end(slot)

	outcome := s.run(ctx, card)

	if err := s.outcomes.Save(ctx, slot, outcome); err != nil {
		s.logger.Error("checkout.outcome store failed", slog.String("slot", slot), slog.Any("error", err))
	}
	s.record(ctx, slot, card, outcome)

	attrs := []any{
		slog.String("slot", slot),
		slog.String("card_type", card.CardType.Name()),
		slog.String("last4", card.Last4()),
		slog.String("state", string(outcome.State())),
		slog.Duration("duration", s.now().Sub(start)),
	}
	if outcome.Failed() {
		attrs = append(attrs, slog.String("stage", string(outcome.Stage)), slog.Any("error", outcome.Error))
		s.logger.Warn("checkout.submit failed", attrs...)
	} else {
		s.logger.Info("checkout.submit completed", attrs...)
	}
	return outcome
}

func (s *Service) run(ctx context.Context, card cardform.CardInput) Outcome {
	key, err := s.backend.SigningKey(ctx)
	if err != nil {
		return Outcome{Data: card, Error: errorValue(err), Stage: StageSigningKey}
	}

	token, err := s.tokenizer.Tokenize(ctx, key, card)
	if err != nil {
		return Outcome{Data: card, Error: errorValue(err)}
	}

	receipt, err := s.backend.PostReceipt(ctx, backend.ReceiptRequest{CardInput: card, FlexResponse: token})
	if err != nil {
		return Outcome{Data: card, Error: errorValue(err)}
	}

	return Outcome{Data: card, Token: token, Receipt: receipt}
}

// Last returns the stored outcome of slot.
func (s *Service) Last(ctx context.Context, slot string) (Outcome, bool, error) {
	return s.outcomes.Load(ctx, slot)
}

// State reports the lifecycle state of slot.
func (s *Service) State(ctx context.Context, slot string) (State, error) {
	s.mu.Lock()
	busy := s.inflight[slot] > 0
	s.mu.Unlock()
	if busy {
		return StateSubmitting, nil
	}
	o, ok, err := s.outcomes.Load(ctx, slot)
	if err != nil {
		return "", err
	}
	if !ok {
		return StateIdle, nil
	}
	return o.State(), nil
}

// Attempts lists the journaled submissions of slot, newest first.
func (s *Service) Attempts(ctx context.Context, slot string, limit int) ([]journal.Attempt, error) {
	if s.attempts == nil {
		return nil, nil
	}
	return s.attempts.ListBySlot(ctx, slot, limit)
}

func (s *Service) begin(slot string) {
	s.mu.Lock()
	s.inflight[slot]++
	s.mu.Unlock()
}

func (s *Service) end(slot string) {
	s.mu.Lock()
	if s.inflight[slot] <= 1 {
		delete(s.inflight, slot)
	} else {
		s.inflight[slot]--
	}
	s.mu.Unlock()
}

func (s *Service) record(ctx context.Context, slot string, card cardform.CardInput, o Outcome) {
	if s.attempts == nil {
		return
	}
	result := journal.ResultSuccess
	if o.Failed() {
		result = journal.ResultFailed
	}
	var receiptID string
	if id, ok := o.Receipt["id"].(string); ok {
		receiptID = id
	}
	attempt := journal.NewAttempt(slot, card, result, string(o.Stage), receiptID, s.now())
	if err := s.attempts.Record(ctx, attempt); err != nil {
		s.logger.Warn("checkout.journal record failed", slog.String("slot", slot), slog.Any("error", err))
	}
}

// errorValue is what an outcome shows for err: the tokenizer's own error
// value when it rejected the card, the message otherwise.
func errorValue(err error) any {
	var flexErr *flex.Error
	if errors.As(err, &flexErr) {
		return flexErr.Value
	}
	return err.Error()
}
