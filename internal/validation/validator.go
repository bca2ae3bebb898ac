package validation

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator. Field errors are reported under their
// json names and AddToCartRequest prices must be whole cents.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(addToCartStructValidation, AddToCartRequest{})

	return v
}

// addToCartStructValidation rejects prices with fractions of a cent.
func addToCartStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(AddToCartRequest)

	cents := req.Price * 100
	if math.Abs(cents-math.Round(cents)) > 1e-6 {
		sl.ReportError(req.Price, "price", "Price", "whole_cents", fmt.Sprintf("%.4f", req.Price))
	}
}
