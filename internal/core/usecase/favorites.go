package usecase

import (
	"brokerage-backoffice/internal/contextkeys"
	"brokerage-backoffice/internal/core/domain"
	"brokerage-backoffice/internal/core/port"
	"context"
	"fmt"
	"strings"
)

// FavoritesService - избранное витрины. Идентификаторы хранит удаленный API,
// карточки подтягиваются отдельным запросом.
type FavoritesService struct {
	favorites port.FavoritesGatewayPort
	listings  port.ListingGatewayPort
}

func NewFavoritesService(favorites port.FavoritesGatewayPort, listings port.ListingGatewayPort) *FavoritesService {
	return &FavoritesService{favorites: favorites, listings: listings}
}

// IDs возвращает все идентификаторы избранного (для отметок на карточках).
func (s *FavoritesService) IDs(ctx context.Context) ([]string, error) {
	ids, err := s.favorites.AllFavoriteIDs(ctx)
	if err != nil {
		contextkeys.LoggerFromContext(ctx).Error("Failed to get favorite IDs", err, nil)
		return nil, fmt.Errorf("failed to get favorite IDs: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// List возвращает страницу избранного в порядке добавления.
func (s *FavoritesService) List(ctx context.Context, limit, offset int) (domain.FavoritesPage, error) {
	if limit < 1 {
		limit = defaultListingPageSize
	}
	if offset < 0 {
		offset = 0
	}
	ucLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case": "GetFavorites",
		"limit":    limit,
		"offset":   offset,
	})
	ucLogger.Info("Use case started", nil)

	page, err := s.favorites.ListFavoriteIDs(ctx, limit, offset)
	if err != nil {
		ucLogger.Error("Failed to get favorite IDs", err, nil)
		return domain.FavoritesPage{}, fmt.Errorf("failed to get favorite IDs: %w", err)
	}

	result := domain.FavoritesPage{
		Listings:     []domain.ListingCard{},
		TotalCount:   page.TotalCount,
		CurrentPage:  offset/limit + 1,
		ItemsPerPage: limit,
	}
	if len(page.ListingIDs) == 0 {
		ucLogger.Info("No favorites on page", port.Fields{"total_count": page.TotalCount})
		return result, nil
	}

	cards, err := s.listings.GetListingsByIDs(ctx, page.ListingIDs)
	if err != nil {
		ucLogger.Error("Failed to get listing cards", err, nil)
		return domain.FavoritesPage{}, fmt.Errorf("failed to get listing cards: %w", err)
	}

	// API объявлений не гарантирует порядок, восстанавливаем его по списку ID.
	byID := make(map[string]domain.ListingCard, len(cards))
	for _, c := range cards {
		byID[c.ID] = c
	}
	for _, id := range page.ListingIDs {
		if c, ok := byID[id]; ok {
			result.Listings = append(result.Listings, c)
		}
	}

	ucLogger.Info("Use case finished successfully", port.Fields{"returned": len(result.Listings)})
	return result, nil
}

func (s *FavoritesService) Add(ctx context.Context, listingID string) error {
	listingID = strings.TrimSpace(listingID)
	if listingID == "" {
		return domain.NewValidationError("listingId", "listing id is required")
	}
	if err := s.favorites.AddFavorite(ctx, listingID); err != nil {
		contextkeys.LoggerFromContext(ctx).Error("Failed to add favorite", err, port.Fields{"listing_id": listingID})
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

func (s *FavoritesService) Remove(ctx context.Context, listingID string) error {
	listingID = strings.TrimSpace(listingID)
	if listingID == "" {
		return domain.NewValidationError("listingId", "listing id is required")
	}
	if err := s.favorites.RemoveFavorite(ctx, listingID); err != nil {
		contextkeys.LoggerFromContext(ctx).Error("Failed to remove favorite", err, port.Fields{"listing_id": listingID})
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return nil
}
