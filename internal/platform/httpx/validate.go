package httpx

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/taskforge/taskforge/internal/shared"
)

// Validate runs struct validation and reports the first failing field as a
// shared.ErrValidation.
func Validate(v *validator.Validate, form any) error {
	err := v.Struct(form)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return fmt.Errorf("%w: %s %s", shared.ErrValidation, fieldErrs[0].Field(), fieldErrs[0].Tag())
	}
	return shared.ErrValidation
}
