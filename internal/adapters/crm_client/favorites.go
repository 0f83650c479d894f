package crm_client

import (
	"brokerage-backoffice/internal/core/domain"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

func (c *Client) ListFavoriteIDs(ctx context.Context, limit, offset int) (domain.PaginatedFavoriteIDs, error) {
	query := url.Values{
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
	}
	var dto favoriteIDsDTO
	if err := c.do(ctx, http.MethodGet, "/favorites", query, nil, &dto); err != nil {
		return domain.PaginatedFavoriteIDs{}, fmt.Errorf("failed to list favorites: %w", err)
	}
	ids := dto.PropertyIDs
	if ids == nil {
		ids = []string{}
	}
	return domain.PaginatedFavoriteIDs{ListingIDs: ids, TotalCount: dto.TotalCount}, nil
}

func (c *Client) AllFavoriteIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := c.do(ctx, http.MethodGet, "/favorites/ids", nil, nil, &ids); err != nil {
		return nil, fmt.Errorf("failed to list favorite ids: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func (c *Client) AddFavorite(ctx context.Context, listingID string) error {
	if err := c.do(ctx, http.MethodPost, "/favorites", nil, propertyLinkRequest{PropertyID: listingID}, nil); err != nil {
		return fmt.Errorf("failed to add favorite %s: %w", listingID, err)
	}
	return nil
}

func (c *Client) RemoveFavorite(ctx context.Context, listingID string) error {
	if err := c.do(ctx, http.MethodDelete, idPath("/favorites/%s", listingID), nil, nil, nil); err != nil {
		return fmt.Errorf("failed to remove favorite %s: %w", listingID, err)
	}
	return nil
}
