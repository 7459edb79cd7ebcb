package journal

import (
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/flex_checkout/internal/cardform"
)

const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
)

// Attempt is the masked record of one checkout submission. It never holds
// the card number or security code.
type Attempt struct {
	ID        string
	Slot      string
	CardType  string
	Last4     string
	Result    string
	Stage     string
	ReceiptID string
	CreatedAt time.Time
}

// NewAttempt builds an attempt record for the given card with a fresh id.
func NewAttempt(slot string, card cardform.CardInput, result, stage, receiptID string, at time.Time) Attempt {
	return Attempt{
		ID:        uuid.NewString(),
		Slot:      slot,
		CardType:  card.CardType.Name(),
		Last4:     card.Last4(),
		Result:    result,
		Stage:     stage,
		ReceiptID: receiptID,
		CreatedAt: at.UTC(),
	}
}
