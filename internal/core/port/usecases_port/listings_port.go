package usecases_port

import (
	"brokerage-backoffice/internal/core/domain"
	"brokerage-backoffice/internal/core/usecase"
	"context"
)

type ListingsUseCasePort interface {
	Search(ctx context.Context, keyword string, page, limit int) (domain.ListingPage, error)
	Get(ctx context.Context, listingID string) (domain.Listing, error)
	Create(ctx context.Context, form usecase.ListingForm) (domain.Listing, error)
	Update(ctx context.Context, listingID string, form usecase.ListingForm) (domain.Listing, error)
	ReorderImages(ctx context.Context, listingID string, urls []string) (domain.Listing, error)
}

type FavoritesUseCasePort interface {
	IDs(ctx context.Context) ([]string, error)
	List(ctx context.Context, limit, offset int) (domain.FavoritesPage, error)
	Add(ctx context.Context, listingID string) error
	Remove(ctx context.Context, listingID string) error
}
