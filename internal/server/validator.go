package server

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// CustomValidator implements echo.Validator.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates the request validator.
func NewValidator() echo.Validator {
	return &CustomValidator{validator: validator.New()}
}

// Validate validates a bound request.
func (cv *CustomValidator) Validate(i any) error {
	return cv.validator.Struct(i)
}
