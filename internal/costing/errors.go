package costing

import (
	"errors"
	"fmt"
)

var (
	ErrProductNotFound       = errors.New("product_not_found")
	ErrIncompatibleDimension = errors.New("incompatible_dimension")
	ErrInvalidQuantity       = errors.New("invalid_quantity")
	ErrInactiveProduct       = errors.New("inactive_product")
	ErrUnknownUnit           = errors.New("unknown_unit")
	ErrInvalidPrice          = errors.New("invalid_price")
	ErrInvalidUnit           = errors.New("invalid_unit")
	ErrInvalidThresholds     = errors.New("invalid_thresholds")
)

// LineError pins a costing failure to the ingredient line that caused it.
type LineError struct {
	Index     int
	ProductID string
	Err       error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("ingredient line %d (product %s): %v", e.Index, e.ProductID, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// Kind returns the sentinel code of a costing error, or an empty string when err
// is not one of ours.
func Kind(err error) string {
	for _, target := range []error{
		ErrProductNotFound,
		ErrIncompatibleDimension,
		ErrInvalidQuantity,
		ErrInactiveProduct,
		ErrUnknownUnit,
		ErrInvalidPrice,
	} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return ""
}

// LineIndex reports the ingredient line index carried by err, if any.
func LineIndex(err error) (int, bool) {
	var lineErr *LineError
	if errors.As(err, &lineErr) && lineErr != nil {
		return lineErr.Index, true
	}
	return 0, false
}
