package rest

import (
	"brokerage-backoffice/internal/contextkeys"
	"brokerage-backoffice/internal/core/port"
	"brokerage-backoffice/internal/core/port/usecases_port"
	"brokerage-backoffice/internal/core/usecase"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

const defaultFavoritesLimit = 20

type ListingHandler struct {
	listingsUC usecases_port.ListingsUseCasePort
}

func NewListingHandler(listingsUC usecases_port.ListingsUseCasePort) *ListingHandler {
	return &ListingHandler{listingsUC: listingsUC}
}

// SearchListings обрабатывает GET /api/v1/listings?q=&page=&limit=
func (h *ListingHandler) SearchListings(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "SearchListings"})

	page, err := queryInt(r, "page", 1)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	keyword := strings.TrimSpace(r.URL.Query().Get("q"))

	result, err := h.listingsUC.Search(r.Context(), keyword, page, limit)
	if err != nil {
		writeDomainError(w, logger.WithFields(port.Fields{"page": page}), "Failed to search listings", err)
		return
	}
	RespondWithJSON(w, http.StatusOK, toListingPageResponse(result))
}

// GetListing обрабатывает GET /api/v1/listings/{listingID}
func (h *ListingHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	listingID := chi.URLParam(r, "listingID")
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{
		"handler":    "GetListing",
		"listing_id": listingID,
	})

	listing, err := h.listingsUC.Get(r.Context(), listingID)
	if err != nil {
		writeDomainError(w, logger, "Failed to get listing", err)
		return
	}
	RespondWithJSON(w, http.StatusOK, listing)
}

// CreateListing обрабатывает POST /api/v1/listings
func (h *ListingHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "CreateListing"})

	var form usecase.ListingForm
	if err := decodeAndValidate(r, &form); err != nil {
		logger.Warn("Invalid listing form", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	listing, err := h.listingsUC.Create(r.Context(), form)
	if err != nil {
		writeDomainError(w, logger, "Failed to create listing", err)
		return
	}
	logger.Info("Listing created successfully", port.Fields{"listing_id": listing.ID})
	RespondWithJSON(w, http.StatusCreated, listing)
}

// UpdateListing обрабатывает PUT /api/v1/listings/{listingID}
func (h *ListingHandler) UpdateListing(w http.ResponseWriter, r *http.Request) {
	listingID := chi.URLParam(r, "listingID")
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{
		"handler":    "UpdateListing",
		"listing_id": listingID,
	})

	var form usecase.ListingForm
	if err := decodeAndValidate(r, &form); err != nil {
		logger.Warn("Invalid listing form", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	listing, err := h.listingsUC.Update(r.Context(), listingID, form)
	if err != nil {
		writeDomainError(w, logger, "Failed to update listing", err)
		return
	}
	RespondWithJSON(w, http.StatusOK, listing)
}

// ReorderImages обрабатывает PUT /api/v1/listings/{listingID}/images/order
func (h *ListingHandler) ReorderImages(w http.ResponseWriter, r *http.Request) {
	listingID := chi.URLParam(r, "listingID")
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{
		"handler":    "ReorderImages",
		"listing_id": listingID,
	})

	var req ReorderImagesRequest
	if err := decodeAndValidate(r, &req); err != nil {
		logger.Warn("Invalid reorder images request", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	listing, err := h.listingsUC.ReorderImages(r.Context(), listingID, req.URLs)
	if err != nil {
		writeDomainError(w, logger, "Failed to reorder listing images", err)
		return
	}
	RespondWithJSON(w, http.StatusOK, listing)
}

type FavoritesHandler struct {
	favoritesUC usecases_port.FavoritesUseCasePort
}

func NewFavoritesHandler(favoritesUC usecases_port.FavoritesUseCasePort) *FavoritesHandler {
	return &FavoritesHandler{favoritesUC: favoritesUC}
}

// GetFavoriteIDs обрабатывает GET /api/v1/favorites/ids
func (h *FavoritesHandler) GetFavoriteIDs(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "GetFavoriteIDs"})

	ids, err := h.favoritesUC.IDs(r.Context())
	if err != nil {
		writeDomainError(w, logger, "Failed to get favorite ids", err)
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string][]string{"listingIds": ids})
}

// GetFavorites обрабатывает GET /api/v1/favorites?limit=&offset=
func (h *FavoritesHandler) GetFavorites(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "GetFavorites"})

	limit, err := queryInt(r, "limit", defaultFavoritesLimit)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if limit <= 0 {
		limit = defaultFavoritesLimit
	}
	if offset < 0 {
		offset = 0
	}
	handlerLogger := logger.WithFields(port.Fields{"limit": limit, "offset": offset})

	result, err := h.favoritesUC.List(r.Context(), limit, offset)
	if err != nil {
		writeDomainError(w, handlerLogger, "Failed to get favorites", err)
		return
	}
	handlerLogger.Info("Successfully retrieved favorites", port.Fields{
		"total_found":   result.TotalCount,
		"items_on_page": len(result.Listings),
	})
	RespondWithJSON(w, http.StatusOK, toFavoritesResponse(result))
}

// AddFavorite обрабатывает POST /api/v1/favorites
func (h *FavoritesHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "AddFavorite"})

	var req FavoriteRequest
	if err := decodeAndValidate(r, &req); err != nil {
		logger.Warn("Invalid add favorite request", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.favoritesUC.Add(r.Context(), req.ListingID); err != nil {
		writeDomainError(w, logger.WithFields(port.Fields{"listing_id": req.ListingID}), "Failed to add favorite", err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// RemoveFavorite обрабатывает DELETE /api/v1/favorites/{listingID}
func (h *FavoritesHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	listingID := chi.URLParam(r, "listingID")
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{
		"handler":    "RemoveFavorite",
		"listing_id": listingID,
	})
	if err := h.favoritesUC.Remove(r.Context(), listingID); err != nil {
		writeDomainError(w, logger, "Failed to remove favorite", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
