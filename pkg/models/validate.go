package models

import (
	"github.com/go-playground/validator/v10"
)

// ValidClock reports whether s is a zero-padded 24-hour HH:MM time
func ValidClock(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	return h < 24 && m < 60
}

// RegisterValidations adds the custom tags used by the model structs
func RegisterValidations(v *validator.Validate) error {
	return v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		return ValidClock(fl.Field().String())
	})
}

// NewValidator returns a validator reading the same `binding` tags gin uses
func NewValidator() (*validator.Validate, error) {
	v := validator.New()
	v.SetTagName("binding")
	if err := RegisterValidations(v); err != nil {
		return nil, err
	}
	return v, nil
}
