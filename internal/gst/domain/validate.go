package domain

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	taxratedomain "github.com/smallbiznis/gstengine/internal/taxrate/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Normalize canonicalizes casing and defaults, then validates the request.
// Quantity 0 means a non quantity-rated supply and becomes 1.
func (r ComputeRequest) Normalize() (ComputeRequest, error) {
	r.ClassificationCode = strings.TrimSpace(r.ClassificationCode)
	r.BusinessType = taxratedomain.BusinessType(strings.ToUpper(strings.TrimSpace(string(r.BusinessType))))
	r.BuyerStateCode = strings.ToUpper(strings.TrimSpace(r.BuyerStateCode))
	r.SellerStateCode = strings.ToUpper(strings.TrimSpace(r.SellerStateCode))
	r.TaxSpec = TransactionTaxSpec(strings.ToUpper(strings.TrimSpace(string(r.TaxSpec))))
	r.Strategy = RateResolutionStrategy(strings.ToLower(strings.TrimSpace(string(r.Strategy))))

	if r.BaseAmount.IsNegative() {
		return r, NewInvalidInput("base_amount", "must not be negative")
	}
	if err := validate.Struct(r); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return r, NewInvalidInput(fe.Field(), "failed "+fe.Tag()+" check")
		}
		return r, &ComputationError{Kind: ErrInvalidInput, Cause: err}
	}
	if r.Quantity == 0 {
		r.Quantity = 1
	}
	if r.AsOf.IsZero() {
		return r, NewInvalidInput("as_of", "required")
	}
	if r.TaxSpec == TaxSpecIntra && r.BuyerStateCode == "" {
		return r, NewInvalidInput("buyer_state_code", "required for intra-state supply")
	}
	return r, nil
}
