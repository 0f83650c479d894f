package usecase

import (
	"brokerage-backoffice/internal/contextkeys"
	"brokerage-backoffice/internal/core/domain"
	"brokerage-backoffice/internal/core/port"
	"context"
	"fmt"
	"strings"
)

const (
	defaultListingPageSize = 12
	maxListingPageSize     = 50
)

// ListingService - поиск, просмотр и редактирование объявлений. Чтение кэшируется, запись сбрасывает кэш.
type ListingService struct {
	gateway   port.ListingGatewayPort
	cache     port.ListingCachePort
	validator port.ListingValidatorPort
}

// NewListingService - конструктор. cache может быть nil.
func NewListingService(gateway port.ListingGatewayPort, cache port.ListingCachePort, validator port.ListingValidatorPort) *ListingService {
	return &ListingService{gateway: gateway, cache: cache, validator: validator}
}

// NormalizePaging приводит номер страницы и размер к допустимым значениям.
func NormalizePaging(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultListingPageSize
	}
	if limit > maxListingPageSize {
		limit = maxListingPageSize
	}
	return page, limit
}

func (s *ListingService) Search(ctx context.Context, keyword string, page, limit int) (domain.ListingPage, error) {
	keyword = collapseSpaces(keyword)
	page, limit = NormalizePaging(page, limit)
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case": "SearchListings",
		"keyword":  keyword,
		"page":     page,
		"limit":    limit,
	})

	if s.cache != nil {
		cached, found, err := s.cache.GetSearch(ctx, keyword, page, limit)
		if err != nil {
			logger.Warn("Listing cache read failed", port.Fields{"error": err.Error()})
		} else if found {
			logger.Debug("Search served from cache", nil)
			return cached, nil
		}
	}

	result, err := s.gateway.SearchListings(ctx, keyword, page, limit)
	if err != nil {
		logger.Error("Failed to search listings", err, nil)
		return domain.ListingPage{}, fmt.Errorf("failed to search listings: %w", err)
	}
	if result.Items == nil {
		result.Items = []domain.ListingCard{}
	}
	if result.Page == 0 {
		result.Page = page
	}
	if result.PerPage == 0 {
		result.PerPage = limit
	}

	if s.cache != nil {
		if err := s.cache.SetSearch(ctx, keyword, page, limit, result); err != nil {
			logger.Warn("Listing cache write failed", port.Fields{"error": err.Error()})
		}
	}
	return result, nil
}

func (s *ListingService) Get(ctx context.Context, listingID string) (domain.Listing, error) {
	listingID = strings.TrimSpace(listingID)
	if listingID == "" {
		return domain.Listing{}, domain.NewValidationError("id", "listing id is required")
	}
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{"use_case": "GetListing", "listing_id": listingID})

	if s.cache != nil {
		if cached, found, err := s.cache.GetListing(ctx, listingID); err != nil {
			logger.Warn("Listing cache read failed", port.Fields{"error": err.Error()})
		} else if found {
			return cached, nil
		}
	}

	listing, err := s.gateway.GetListing(ctx, listingID)
	if err != nil {
		logger.Error("Failed to fetch listing", err, nil)
		return domain.Listing{}, fmt.Errorf("failed to fetch listing %s: %w", listingID, err)
	}
	s.remember(ctx, logger, listing)
	return listing, nil
}

// Create очищает форму, проверяет запись по схеме и только потом отправляет ее.
func (s *ListingService) Create(ctx context.Context, form ListingForm) (domain.Listing, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{"use_case": "CreateListing"})

	listing, err := s.prepare(form)
	if err != nil {
		logger.Warn("Listing form rejected", port.Fields{"error": err.Error()})
		return domain.Listing{}, err
	}

	created, err := s.gateway.CreateListing(ctx, listing)
	if err != nil {
		logger.Error("Failed to create listing", err, nil)
		return domain.Listing{}, fmt.Errorf("failed to create listing: %w", err)
	}
	logger.Info("Listing created", port.Fields{"listing_id": created.ID})
	s.remember(ctx, logger, created)
	return created, nil
}

func (s *ListingService) Update(ctx context.Context, listingID string, form ListingForm) (domain.Listing, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{"use_case": "UpdateListing", "listing_id": listingID})

	listing, err := s.prepare(form)
	if err != nil {
		logger.Warn("Listing form rejected", port.Fields{"error": err.Error()})
		return domain.Listing{}, err
	}
	listing.ID = listingID
	return s.save(ctx, logger, listingID, listing)
}

// ReorderImages задает явный порядок изображений, первое становится обложкой.
func (s *ListingService) ReorderImages(ctx context.Context, listingID string, urls []string) (domain.Listing, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{"use_case": "ReorderListingImages", "listing_id": listingID})

	listing, err := s.gateway.GetListing(ctx, listingID)
	if err != nil {
		logger.Error("Failed to fetch listing", err, nil)
		return domain.Listing{}, fmt.Errorf("failed to fetch listing %s: %w", listingID, err)
	}
	images, err := ReorderImages(listing.Images, urls)
	if err != nil {
		return domain.Listing{}, err
	}
	listing.Images = images
	if err := s.validator.ValidateListing(listing); err != nil {
		return domain.Listing{}, err
	}
	return s.save(ctx, logger, listingID, listing)
}

func (s *ListingService) prepare(form ListingForm) (domain.Listing, error) {
	listing, err := form.ToListing()
	if err != nil {
		return domain.Listing{}, err
	}
	if err := s.validator.ValidateListing(listing); err != nil {
		return domain.Listing{}, err
	}
	return listing, nil
}

func (s *ListingService) save(ctx context.Context, logger port.LoggerPort, listingID string, listing domain.Listing) (domain.Listing, error) {
	updated, err := s.gateway.UpdateListing(ctx, listingID, listing)
	if err != nil {
		logger.Error("Failed to update listing", err, nil)
		return domain.Listing{}, fmt.Errorf("failed to update listing %s: %w", listingID, err)
	}
	if s.cache != nil {
		if err := s.cache.InvalidateListing(ctx, listingID); err != nil {
			logger.Warn("Listing cache invalidation failed", port.Fields{"error": err.Error()})
		}
	}
	logger.Info("Listing updated", nil)
	return updated, nil
}

func (s *ListingService) remember(ctx context.Context, logger port.LoggerPort, listing domain.Listing) {
	if s.cache == nil || listing.ID == "" {
		return
	}
	if err := s.cache.SetListing(ctx, listing); err != nil {
		logger.Warn("Listing cache write failed", port.Fields{"error": err.Error()})
	}
}
