package crm_client

import (
	"brokerage-backoffice/internal/core/domain"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

func (c *Client) SearchListings(ctx context.Context, keyword string, page, limit int) (domain.ListingPage, error) {
	query := url.Values{
		"page":  {strconv.Itoa(page)},
		"limit": {strconv.Itoa(limit)},
	}
	if keyword != "" {
		query.Set("search", keyword)
	}
	var dto listingPageDTO
	if err := c.do(ctx, http.MethodGet, "/properties", query, nil, &dto); err != nil {
		return domain.ListingPage{}, fmt.Errorf("failed to search listings: %w", err)
	}
	out := domain.ListingPage{
		Items:   make([]domain.ListingCard, 0, len(dto.Data)),
		Total:   dto.Total,
		Page:    dto.Page,
		PerPage: dto.Limit,
	}
	if out.Page == 0 {
		out.Page = page
	}
	if out.PerPage == 0 {
		out.PerPage = limit
	}
	for _, card := range dto.Data {
		out.Items = append(out.Items, card.toDomain())
	}
	return out, nil
}

func (c *Client) GetListing(ctx context.Context, listingID string) (domain.Listing, error) {
	var listing domain.Listing
	if err := c.do(ctx, http.MethodGet, idPath("/properties/%s", listingID), nil, nil, &listing); err != nil {
		return domain.Listing{}, fmt.Errorf("failed to get listing %s: %w", listingID, err)
	}
	return listing, nil
}

// GetListingsByIDs - пакетная загрузка карточек. Порядок ответа не гарантируется.
func (c *Client) GetListingsByIDs(ctx context.Context, listingIDs []string) ([]domain.ListingCard, error) {
	if len(listingIDs) == 0 {
		return []domain.ListingCard{}, nil
	}
	var dto []listingCard
	if err := c.do(ctx, http.MethodPost, "/properties/batch", nil, idsRequest{IDs: listingIDs}, &dto); err != nil {
		return nil, fmt.Errorf("failed to get listings by ids: %w", err)
	}
	out := make([]domain.ListingCard, 0, len(dto))
	for _, card := range dto {
		out = append(out, card.toDomain())
	}
	return out, nil
}

func (c *Client) CreateListing(ctx context.Context, listing domain.Listing) (domain.Listing, error) {
	var created domain.Listing
	if err := c.do(ctx, http.MethodPost, "/properties", nil, listing, &created); err != nil {
		return domain.Listing{}, fmt.Errorf("failed to create listing: %w", err)
	}
	return created, nil
}

func (c *Client) UpdateListing(ctx context.Context, listingID string, listing domain.Listing) (domain.Listing, error) {
	var updated domain.Listing
	if err := c.do(ctx, http.MethodPut, idPath("/properties/%s", listingID), nil, listing, &updated); err != nil {
		return domain.Listing{}, fmt.Errorf("failed to update listing %s: %w", listingID, err)
	}
	return updated, nil
}
