package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/SscSPs/loan_ledger/internal/apperrors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateRequest runs struct tag validation and folds failures into ErrValidation.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	problems := make([]string, 0, len(validationErrors))
	for _, ve := range validationErrors {
		problems = append(problems, fmt.Sprintf("%s failed %s", ve.Field(), ve.Tag()))
	}
	return fmt.Errorf("%w: %s", apperrors.ErrValidation, strings.Join(problems, ", "))
}

// amountScale is the number of decimal places every stored money column keeps.
const amountScale = 2

func requirePositive(name string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s must be positive, got %s", apperrors.ErrValidation, name, amount)
	}
	return requireCents(name, amount)
}

// requireCents rejects amounts that storage would round, such as 0.004.
func requireCents(name string, amount decimal.Decimal) error {
	if !amount.Equal(amount.Round(amountScale)) {
		return fmt.Errorf("%w: %s must have at most %d decimal places, got %s", apperrors.ErrValidation, name, amountScale, amount)
	}
	return nil
}
