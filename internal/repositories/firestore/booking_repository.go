package firestore

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"

	"github.com/stylocore/catalog-api/internal/domain"
	pfirestore "github.com/stylocore/catalog-api/internal/platform/firestore"
	"github.com/stylocore/catalog-api/internal/repositories"
)

const bookingsCollection = "bookings"

// BookingRepository reads bookings created by the storefront.
type BookingRepository struct {
	base *pfirestore.BaseRepository[domain.Booking]
}

var _ repositories.BookingRepository = (*BookingRepository)(nil)

// NewBookingRepository constructs a Firestore-backed booking repository.
func NewBookingRepository(provider *pfirestore.Provider) (*BookingRepository, error) {
	if provider == nil {
		return nil, errors.New("booking repository requires firestore provider")
	}
	return &BookingRepository{
		base: pfirestore.NewBaseRepository[domain.Booking](provider, bookingsCollection, nil, decodeBooking),
	}, nil
}

// List returns every booking in document order.
func (r *BookingRepository) List(ctx context.Context) ([]domain.Booking, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("booking repository not initialised")
	}
	docs, err := r.base.Query(ctx, nil)
	if err != nil {
		return nil, err
	}
	bookings := make([]domain.Booking, 0, len(docs))
	for _, doc := range docs {
		booking := doc.Data
		booking.ID = doc.ID
		bookings = append(bookings, booking)
	}
	return bookings, nil
}

// Delete cancels a booking by removing its document.
func (r *BookingRepository) Delete(ctx context.Context, bookingID string) error {
	if r == nil || r.base == nil {
		return errors.New("booking repository not initialised")
	}
	return r.base.Delete(ctx, bookingID)
}

func decodeBooking(_ context.Context, snap *firestore.DocumentSnapshot) (domain.Booking, error) {
	data := snap.Data()
	return domain.Booking{
		Title:    stringField(data, "title"),
		Location: stringField(data, "location"),
	}, nil
}
