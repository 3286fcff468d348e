package models

import (
	"math"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// cents: at most two decimal places
	_ = v.RegisterValidation("cents", func(fl validator.FieldLevel) bool {
		cents := fl.Field().Float() * 100
		return math.Abs(cents-math.Round(cents)) < 1e-6
	})
	return v
}

func (s *Site) Validate() error {
	return validate.Struct(s)
}

func (s *Service) Validate() error {
	return validate.Struct(s)
}

func (o *SiteOverlay) Validate() error {
	return validate.Struct(o)
}
