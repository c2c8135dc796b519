package logic

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned when a numeric argument is negative or not a
// finite number.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrZeroPrice is returned by CalculateFinalPrice when the marked-up price is
// zero and the discount percentage is undefined.
var ErrZeroPrice = fmt.Errorf("%w: discount undefined for zero price", ErrInvalidArgument)

func checkArg(name string, v float64) error {
	if !isNonNegative(v) {
		return fmt.Errorf("%w: %s must be a non-negative number, got %v", ErrInvalidArgument, name, v)
	}
	return nil
}
