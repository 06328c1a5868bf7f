package common

import (
	"fmt"
	"slices"
	"strings"

	"resumelens/internal/errors"
	"resumelens/internal/formatters"
)

// SupportedFormats returns the formats a command producing values like sample
// can write: those with a registered formatter, narrowed to allowed when the
// configuration lists any.
func SupportedFormats(allowed []string, sample any) []string {
	return supportedFormats(formatters.GlobalRegistry, allowed, sample)
}

// ValidateOutputFormat rejects a format that is not configured or that no
// formatter renders for the command's result type
func ValidateOutputFormat(format string, allowed []string, sample any) error {
	return validateOutputFormat(formatters.GlobalRegistry, format, allowed, sample)
}

func supportedFormats(registry *formatters.FormatterRegistry, allowed []string, sample any) []string {
	renderable := registry.FormatsFor(sample)
	if len(allowed) == 0 {
		return renderable
	}
	return slices.DeleteFunc(renderable, func(format string) bool {
		return !slices.Contains(allowed, format)
	})
}

func validateOutputFormat(registry *formatters.FormatterRegistry, format string, allowed []string, sample any) error {
	supported := supportedFormats(registry, allowed, sample)
	if slices.Contains(supported, format) {
		return nil
	}

	msg := fmt.Sprintf("Unsupported output format '%s'. Supported formats: %s", format, strings.Join(supported, ", "))
	if len(supported) == 0 {
		msg = fmt.Sprintf("Unsupported output format '%s'. No configured format can render this result", format)
	}
	return errors.NewValidationError(errors.ErrCodeInvalidFormat, msg, nil).
		WithContext("format", format)
}
