package cardform

import (
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"
)

// Field names, shared by the HTML controls, the JSON payload and the CLI.
const (
	FieldCardType     = "cardType"
	FieldCardNumber   = "cardNumber"
	FieldSecurityCode = "securityCode"
	FieldExpiryMonth  = "expiryMonth"
	FieldExpiryYear   = "expiryYear"
)

var fieldOrder = []string{FieldCardType, FieldCardNumber, FieldSecurityCode, FieldExpiryMonth, FieldExpiryYear}

// ErrUnknownField is returned when a control addresses a field the form does not hold.
var ErrUnknownField = errors.New("unknown form field")

// Field describes one control bound to the form.
type Field struct {
	Name      string
	Label     string
	MaxLength int
	Options   []Option
	Value     string
}

// Select reports whether the control is a fixed-option select.
func (f Field) Select() bool { return len(f.Options) > 0 }

// Form holds the transient values of the checkout form.
type Form struct {
	mu     sync.RWMutex
	values CardInput
	years  []Option
}

// NewForm seeds a form with initial values; now drives the expiry-year options.
func NewForm(initial CardInput, now time.Time) *Form {
	return &Form{values: initial, years: ExpiryYears(now)}
}

// Get returns the current value of the named field.
func (f *Form) Get(name string) (string, error) {
	if !knownField(name) {
		return "", fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.values.get(name), nil
}

// Set writes a field. Text inputs are cut to their maximum length in
// characters, as a browser's maxlength counts them.
func (f *Form) Set(name, value string) error {
	if !knownField(name) {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	if max := maxLength(name); max > 0 && utf8.RuneCountInString(value) > max {
		value = string([]rune(value)[:max])
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values.set(name, value)
	return nil
}

// Bind writes every known field present in values. Unknown keys are ignored
// so a posted form may carry extra controls.
func (f *Form) Bind(values map[string]string) {
	for _, name := range fieldOrder {
		if v, ok := values[name]; ok {
			_ = f.Set(name, v)
		}
	}
}

// Values returns a snapshot of the form.
func (f *Form) Values() CardInput {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.values
}

// Fields returns the controls in display order with their current values.
func (f *Form) Fields() []Field {
	values := f.Values()
	return []Field{
		{Name: FieldCardType, Label: "Card Type", Options: CardTypes(), Value: string(values.CardType)},
		{Name: FieldCardNumber, Label: "Card Number", MaxLength: maxLength(FieldCardNumber), Value: values.CardNumber},
		{Name: FieldSecurityCode, Label: "Security code", MaxLength: maxLength(FieldSecurityCode), Value: values.SecurityCode},
		{Name: FieldExpiryMonth, Label: "Expiry Month", Options: Months(), Value: values.ExpiryMonth},
		{Name: FieldExpiryYear, Label: "Expiry Year", Options: f.years, Value: values.ExpiryYear},
	}
}

func maxLength(name string) int {
	switch name {
	case FieldCardNumber:
		return 19
	case FieldSecurityCode:
		return 4
	}
	return 0
}

func knownField(name string) bool {
	for _, f := range fieldOrder {
		if f == name {
			return true
		}
	}
	return false
}
