package service

import "errors"

var (
	ErrStepInvalid          = errors.New("current step is not valid")
	ErrNegativeAmount       = errors.New("amount must not be negative")
	ErrInvalidDiscountType  = errors.New("discount type must be % or $")
	ErrInvalidQuantity      = errors.New("quantity must contain digits only")
	ErrCombinationNotFound  = errors.New("combination not found")
	ErrImageAlreadyUploaded = errors.New("image already uploaded")
	ErrCategoryNameRequired = errors.New("category name is required")
	ErrCategoryExists       = errors.New("category already exists")
)

// InputError ties a rejected input to the field it came from
type InputError struct {
	Field string
	Err   error
}

func (e *InputError) Error() string { return e.Field + ": " + e.Err.Error() }

func (e *InputError) Unwrap() error { return e.Err }

func inputError(field string, err error) error {
	return &InputError{Field: field, Err: err}
}
