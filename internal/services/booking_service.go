package services

import (
	"context"
	"errors"
	"strings"

	"github.com/stylocore/catalog-api/internal/repositories"
)

// BookingServiceDeps bundles constructor inputs for the booking service.
type BookingServiceDeps struct {
	Bookings repositories.BookingRepository
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

type bookingService struct {
	bookings repositories.BookingRepository
	logger   logFunc
}

var _ BookingService = (*bookingService)(nil)

// NewBookingService constructs the booking service.
func NewBookingService(deps BookingServiceDeps) (BookingService, error) {
	if deps.Bookings == nil {
		return nil, errors.New("booking service: booking repository is required")
	}
	logger := logFunc(deps.Logger)
	if logger == nil {
		logger = nopLogger
	}
	return &bookingService{bookings: deps.Bookings, logger: logger}, nil
}

func (s *bookingService) List(ctx context.Context) ([]Booking, error) {
	bookings, err := s.bookings.List(ctx)
	if err != nil {
		return nil, translateRepositoryError(err, nil)
	}
	return bookings, nil
}

// Cancel deletes the booking document.
func (s *bookingService) Cancel(ctx context.Context, bookingID string) error {
	bookingID = strings.TrimSpace(bookingID)
	if bookingID == "" {
		return invalidField("id", "is required")
	}
	if err := s.bookings.Delete(ctx, bookingID); err != nil {
		return translateRepositoryError(err, ErrBookingNotFound)
	}
	s.logger(ctx, "catalog.booking.cancelled", map[string]any{"bookingId": bookingID})
	return nil
}
