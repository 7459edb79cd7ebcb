package cardform

import (
	"strconv"
	"time"
)

// Option is one entry of a fixed select control.
type Option struct {
	Value string
	Label string
}

// expiryYearSpan is the number of selectable expiry years.
const expiryYearSpan = 10

var monthLabels = [12]string{"JAN", "FEB", "MAR", "APR", "MAY", "JUN", "JUL", "AUG", "SEP", "OCT", "NOV", "DEC"}

// CardTypes returns the supported card brands.
func CardTypes() []Option {
	types := []CardType{CardTypeVisa, CardTypeMastercard, CardTypeAmex}
	out := make([]Option, 0, len(types))
	for _, t := range types {
		out = append(out, Option{Value: string(t), Label: t.Name()})
	}
	return out
}

// Months returns the twelve expiry month options, "01 (JAN)" through "12 (DEC)".
func Months() []Option {
	out := make([]Option, 0, len(monthLabels))
	for i, name := range monthLabels {
		v := twoDigits(i + 1)
		out = append(out, Option{Value: v, Label: v + " (" + name + ")"})
	}
	return out
}

// ExpiryYears returns ten consecutive years starting the year after now.
func ExpiryYears(now time.Time) []Option {
	first := now.Year() + 1
	out := make([]Option, 0, expiryYearSpan)
	for i := 0; i < expiryYearSpan; i++ {
		v := strconv.Itoa(first + i)
		out = append(out, Option{Value: v, Label: v})
	}
	return out
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
