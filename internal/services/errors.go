package services

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/stylocore/catalog-api/internal/repositories"
)

var (
	// ErrValidationFailed matches every *ValidationError.
	ErrValidationFailed = errors.New("catalog: validation failed")
	// ErrProductNotFound indicates the product document does not exist.
	ErrProductNotFound = errors.New("catalog: product not found")
	// ErrOrderNotFound indicates the order document does not exist.
	ErrOrderNotFound = errors.New("catalog: order not found")
	// ErrCouponNotFound indicates the coupon document does not exist.
	ErrCouponNotFound = errors.New("catalog: coupon not found")
	// ErrBookingNotFound indicates the booking document does not exist.
	ErrBookingNotFound = errors.New("catalog: booking not found")
	// ErrAssetUploadFailed wraps any blob store failure while resolving staged images.
	ErrAssetUploadFailed = errors.New("catalog: asset upload failed")
	// ErrIndexOutOfRange matches every *IndexError.
	ErrIndexOutOfRange = errors.New("catalog: index out of range")
	// ErrConflictDetected indicates the stored document changed since it was read.
	ErrConflictDetected = errors.New("catalog: conflict detected")
	// ErrStoreUnavailable indicates the document store could not be reached.
	ErrStoreUnavailable = errors.New("catalog: store unavailable")
)

// FieldViolation names one field that failed validation.
type FieldViolation struct {
	Field   string
	Message string
}

// ValidationError lists every violation found in one validation pass.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Violations) == 0 {
		return ErrValidationFailed.Error()
	}
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Message)
	}
	return fmt.Sprintf("%s: %s", ErrValidationFailed.Error(), strings.Join(parts, "; "))
}

// Is matches ErrValidationFailed.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Violations = append(e.Violations, FieldViolation{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (e *ValidationError) orNil() error {
	if e == nil || len(e.Violations) == 0 {
		return nil
	}
	return e
}

func sortViolations(violations []FieldViolation) {
	slices.SortStableFunc(violations, func(a, b FieldViolation) int {
		return strings.Compare(a.Field, b.Field)
	})
}

func invalidField(field, format string, args ...any) error {
	verr := &ValidationError{}
	verr.add(field, format, args...)
	return verr
}

// IndexError reports an index outside the bounds of the addressed sequence.
type IndexError struct {
	Target string
	Index  int
	Length int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s: %s index %d (length %d)", ErrIndexOutOfRange.Error(), e.Target, e.Index, e.Length)
}

// Is matches ErrIndexOutOfRange.
func (e *IndexError) Is(target error) bool {
	return target == ErrIndexOutOfRange
}

// translateRepositoryError maps repository failures onto service sentinels, keeping the cause.
func translateRepositoryError(err error, notFound error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound() && notFound != nil:
			return fmt.Errorf("%w: %v", notFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrConflictDetected, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}
	return err
}
