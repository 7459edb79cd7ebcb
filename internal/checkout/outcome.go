package checkout

import (
	"encoding/json"

	"github.com/congo-pay/flex_checkout/internal/backend"
	"github.com/congo-pay/flex_checkout/internal/cardform"
	"github.com/congo-pay/flex_checkout/internal/flex"
)

// Stage names the step at which a submission failed. Tokenization and
// receipt failures are not distinguished and carry no stage.
type Stage string

// StageSigningKey marks a failure to obtain the signing key.
const StageSigningKey Stage = "signing_key"

// State is the lifecycle of a slot.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateSuccess    State = "success"
	StateFailed     State = "failed"
)

// Outcome is the result of one submission: either token and receipt, or an
// error value, always alongside the submitted data.
type Outcome struct {
	Data    cardform.CardInput `json:"data"`
	Token   flex.Token         `json:"token"`
	Receipt backend.Receipt    `json:"receipt"`
	Error   any                `json:"error,omitempty"`
	Stage   Stage              `json:"stage,omitempty"`
}

// MarshalJSON writes token and receipt for every successful outcome, even
// when they are empty, and leaves both out of failures.
func (o Outcome) MarshalJSON() ([]byte, error) {
	type plain Outcome
	out := struct {
		plain
		Token   *flex.Token      `json:"token,omitempty"`
		Receipt *backend.Receipt `json:"receipt,omitempty"`
	}{plain: plain(o)}
	if !o.Failed() {
		out.Token, out.Receipt = &o.Token, &o.Receipt
	}
	return json.Marshal(out)
}

// Failed reports whether the outcome carries an error.
func (o Outcome) Failed() bool {
	return o.Error != nil
}

// State maps the outcome onto the slot lifecycle.
func (o Outcome) State() State {
	if o.Failed() {
		return StateFailed
	}
	return StateSuccess
}
