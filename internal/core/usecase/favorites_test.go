package usecase_test

import (
	"context"
	"testing"

	"brokerage-backoffice/internal/core/domain"
	"brokerage-backoffice/internal/core/usecase"
	"brokerage-backoffice/internal/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFavoritesList_PreservesFavoriteOrder(t *testing.T) {
	t.Parallel()

	favs := &mocks.FavoritesGateway{}
	listings := &mocks.ListingGateway{}
	svc := usecase.NewFavoritesService(favs, listings)

	favs.On("ListFavoriteIDs", mock.Anything, 2, 2).
		Return(domain.PaginatedFavoriteIDs{ListingIDs: []string{"b", "a", "gone"}, TotalCount: 5}, nil).Once()
	listings.On("GetListingsByIDs", mock.Anything, []string{"b", "a", "gone"}).
		Return([]domain.ListingCard{{ID: "a"}, {ID: "b"}}, nil).Once()

	page, err := svc.List(context.Background(), 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Listings, 2)
	assert.Equal(t, "b", page.Listings[0].ID)
	assert.Equal(t, "a", page.Listings[1].ID)
	assert.Equal(t, 2, page.CurrentPage)
	assert.EqualValues(t, 5, page.TotalCount)
}

func TestFavoritesList_EmptyPageSkipsEnrichment(t *testing.T) {
	t.Parallel()

	favs := &mocks.FavoritesGateway{}
	listings := &mocks.ListingGateway{}
	svc := usecase.NewFavoritesService(favs, listings)
	favs.On("ListFavoriteIDs", mock.Anything, 12, 0).Return(domain.PaginatedFavoriteIDs{}, nil).Once()

	page, err := svc.List(context.Background(), 0, -3)
	require.NoError(t, err)
	assert.Empty(t, page.Listings)
	assert.NotNil(t, page.Listings)
	listings.AssertNotCalled(t, "GetListingsByIDs", mock.Anything, mock.Anything)
}

func TestFavorites_AddRemove(t *testing.T) {
	t.Parallel()

	favs := &mocks.FavoritesGateway{}
	svc := usecase.NewFavoritesService(favs, &mocks.ListingGateway{})
	favs.On("AddFavorite", mock.Anything, "L1").Return(nil).Once()
	favs.On("RemoveFavorite", mock.Anything, "L1").Return(errRemote).Once()

	require.NoError(t, svc.Add(context.Background(), " L1 "))
	assert.ErrorIs(t, svc.Remove(context.Background(), "L1"), errRemote)
	assert.ErrorIs(t, svc.Add(context.Background(), ""), domain.ErrValidation)
}
