// Package validation provides custom validation rules for the application.
package validation

import (
	"encoding/json"
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/redo/internal/errors"
)

// identifierRegex matches dotted identifiers such as "com.acme.PaymentService" or "payments".
var identifierRegex = regexp.MustCompile(`^[\p{L}_$][\p{L}\p{N}_$]*(\.[\p{L}_$][\p{L}\p{N}_$]*)*$`)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// Identifier validates a dotted identifier used as a target type or method name
var Identifier = validation.NewStringRuleWithError(
	identifierRegex.MatchString,
	validation.NewError("validation_identifier", "must be a dotted identifier"),
)

// JSONArray validates that a string holds a JSON array. Empty strings pass; use Required to reject them.
var JSONArray = validation.NewStringRuleWithError(
	func(s string) bool {
		var items []json.RawMessage
		return json.Unmarshal([]byte(s), &items) == nil
	},
	validation.NewError("validation_json_array", "must be a JSON array"),
)
