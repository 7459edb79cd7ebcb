package cardform

import (
	"fmt"
	"strings"
	"time"
)

// CardType is the three digit card brand code expected by the tokenizer.
type CardType string

const (
	CardTypeVisa       CardType = "001"
	CardTypeMastercard CardType = "002"
	CardTypeAmex       CardType = "003"
)

// Name returns the brand name for the code, or the raw code when unknown.
func (t CardType) Name() string {
	switch t {
	case CardTypeVisa:
		return "VISA"
	case CardTypeMastercard:
		return "MASTERCARD"
	case CardTypeAmex:
		return "AMEX"
	default:
		return string(t)
	}
}

// Known reports whether t is one of the supported brands.
func (t CardType) Known() bool {
	switch t {
	case CardTypeVisa, CardTypeMastercard, CardTypeAmex:
		return true
	}
	return false
}

// CardInput holds the values collected by the checkout form. Values are
// passed through to the tokenizer and the receipt endpoint untouched.
type CardInput struct {
	CardType     CardType `json:"cardType" yaml:"cardType"`
	CardNumber   string   `json:"cardNumber" yaml:"cardNumber"`
	SecurityCode string   `json:"securityCode" yaml:"securityCode"`
	ExpiryMonth  string   `json:"expiryMonth" yaml:"expiryMonth"`
	ExpiryYear   string   `json:"expiryYear" yaml:"expiryYear"`
}

// Last4 returns the trailing four characters of the card number.
func (c CardInput) Last4() string {
	digits := strings.ReplaceAll(c.CardNumber, " ", "")
	if len(digits) <= 4 {
		return digits
	}
	return digits[len(digits)-4:]
}

// Missing lists the names of empty fields in form order. Any other value,
// blanks included, is passed on untouched.
func (c CardInput) Missing() []string {
	var out []string
	for _, f := range fieldOrder {
		if c.get(f) == "" {
			out = append(out, f)
		}
	}
	return out
}

// Complete reports whether every field carries a value.
func (c CardInput) Complete() bool {
	return len(c.Missing()) == 0
}

func (c CardInput) get(name string) string {
	switch name {
	case FieldCardType:
		return string(c.CardType)
	case FieldCardNumber:
		return c.CardNumber
	case FieldSecurityCode:
		return c.SecurityCode
	case FieldExpiryMonth:
		return c.ExpiryMonth
	case FieldExpiryYear:
		return c.ExpiryYear
	}
	return ""
}

func (c *CardInput) set(name, value string) {
	switch name {
	case FieldCardType:
		c.CardType = CardType(value)
	case FieldCardNumber:
		c.CardNumber = value
	case FieldSecurityCode:
		c.SecurityCode = value
	case FieldExpiryMonth:
		c.ExpiryMonth = value
	case FieldExpiryYear:
		c.ExpiryYear = value
	}
}

// TestCardNumber is the VISA test card accepted by the Flex test environment.
const TestCardNumber = "4111111111111111"

// Clock supplies the current time.
type Clock func() time.Time

// SystemClock reads the wall clock.
func SystemClock() time.Time { return time.Now() }

// Defaults returns the initial form values for the given instant: the VISA
// test card, expiring in the current month of next year.
func Defaults(now time.Time) CardInput {
	return CardInput{
		CardType:     CardTypeVisa,
		CardNumber:   TestCardNumber,
		SecurityCode: "111",
		ExpiryMonth:  fmt.Sprintf("%02d", int(now.Month())),
		ExpiryYear:   fmt.Sprintf("%d", now.Year()+1),
	}
}

// Merge returns c with every non-empty field of override applied.
func (c CardInput) Merge(override CardInput) CardInput {
	for _, f := range fieldOrder {
		if v := override.get(f); v != "" {
			c.set(f, v)
		}
	}
	return c
}
