package port

import (
	"brokerage-backoffice/internal/core/domain"
	"context"
)

// ListingCachePort - кэш чтения объявлений. Промах кэша возвращает found=false без ошибки.
type ListingCachePort interface {
	GetSearch(ctx context.Context, keyword string, page, limit int) (domain.ListingPage, bool, error)
	SetSearch(ctx context.Context, keyword string, page, limit int, result domain.ListingPage) error
	GetListing(ctx context.Context, listingID string) (domain.Listing, bool, error)
	SetListing(ctx context.Context, listing domain.Listing) error
	InvalidateListing(ctx context.Context, listingID string) error
}

// ListingValidatorPort проверяет запись объявления по декларативной схеме перед отправкой.
type ListingValidatorPort interface {
	ValidateListing(listing domain.Listing) error
}
