package prompt

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/congo-pay/flex_checkout/internal/cardform"
)

// Fill asks for every field of form in order, offering the current value as
// the default, and stores the answers back into form.
func Fill(ctx context.Context, d Driver, form *cardform.Form) error {
	for _, field := range form.Fields() {
		value, err := ask(ctx, d, field)
		if err != nil {
			return fmt.Errorf("%s: %w", field.Name, err)
		}
		if err := form.Set(field.Name, value); err != nil {
			return err
		}
	}
	return nil
}

func ask(ctx context.Context, d Driver, field cardform.Field) (string, error) {
	if field.Select() {
		labels := make([]string, len(field.Options))
		def := 0
		for i, opt := range field.Options {
			labels[i] = opt.Label
			if opt.Value == field.Value {
				def = i
			}
		}
		idx, err := d.Select(ctx, SelectConfig{
			Message:      field.Label,
			Options:      labels,
			DefaultIndex: def,
			PageSize:     len(labels),
		})
		if err != nil {
			return "", err
		}
		if idx < 0 || idx >= len(field.Options) {
			return "", fmt.Errorf("no option selected")
		}
		return field.Options[idx].Value, nil
	}

	return d.Input(ctx, InputConfig{
		Message:   field.Label,
		Default:   field.Value,
		Help:      fmt.Sprintf("at most %d characters", field.MaxLength),
		Secret:    field.Name == cardform.FieldSecurityCode,
		Validator: lengthValidator(field.MaxLength),
	})
}

func lengthValidator(max int) func(string) error {
	return func(s string) error {
		if s == "" {
			return fmt.Errorf("a value is required")
		}
		if max > 0 && utf8.RuneCountInString(s) > max {
			return fmt.Errorf("at most %d characters", max)
		}
		return nil
	}
}
