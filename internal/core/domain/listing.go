package domain

import "time"

// ListingPurpose - цель объявления.
type ListingPurpose string

const (
	PurposeSale     ListingPurpose = "SALE"
	PurposeRent     ListingPurpose = "RENT"
	PurposeSaleRent ListingPurpose = "SALE_RENT"
)

// ListingStatus - статус публикации объявления.
type ListingStatus string

const (
	ListingActive   ListingStatus = "ACTIVE"
	ListingInactive ListingStatus = "INACTIVE"
	ListingSold     ListingStatus = "SOLD"
	ListingRented   ListingStatus = "RENTED"
)

// Address - адресный блок объявления. Геокодирование выполняется вне сервиса,
// здесь только нормализованные значения и geohash по уже известным координатам.
type Address struct {
	Street       string   `json:"street,omitempty"`
	Number       string   `json:"number,omitempty"`
	Complement   string   `json:"complement,omitempty"`
	Neighborhood string   `json:"neighborhood,omitempty"`
	City         string   `json:"city,omitempty"`
	State        string   `json:"state,omitempty"`
	ZipCode      string   `json:"zipCode,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	Geohash      string   `json:"geohash,omitempty"`
}

// ListingImage - изображение объявления. Порядок задается полем Order, обложка всегда первая.
type ListingImage struct {
	URL   string `json:"url"`
	Order int    `json:"order"`
	Cover bool   `json:"cover"`
}

// Listing - запись объекта недвижимости в том виде, в котором она отправляется в API.
// Все необязательные поля явно перечислены, значения по умолчанию задает NewListing.
type Listing struct {
	ID               string         `json:"id,omitempty"`
	Code             string         `json:"code,omitempty"`
	Title            string         `json:"title"`
	Description      string         `json:"description,omitempty"`
	Purpose          ListingPurpose `json:"purpose"`
	Type             string         `json:"type"`
	Status           ListingStatus  `json:"status"`
	SalePrice        *float64       `json:"salePrice,omitempty"`
	RentPrice        *float64       `json:"rentPrice,omitempty"`
	CondominiumFee   *float64       `json:"condominiumFee,omitempty"`
	IPTU             *float64       `json:"iptu,omitempty"`
	TotalArea        *float64       `json:"totalArea,omitempty"`
	PrivateArea      *float64       `json:"privateArea,omitempty"`
	Bedrooms         *int           `json:"bedrooms,omitempty"`
	Suites           *int           `json:"suites,omitempty"`
	Bathrooms        *int           `json:"bathrooms,omitempty"`
	ParkingSpots     *int           `json:"parkingSpots,omitempty"`
	Floor            *int           `json:"floor,omitempty"`
	Furnished        bool           `json:"furnished"`
	Condominium      bool           `json:"condominium"`
	AcceptsFinancing bool           `json:"acceptsFinancing"`
	AcceptsExchange  bool           `json:"acceptsExchange"`
	Featured         bool           `json:"featured"`
	Address          Address        `json:"address"`
	Features         []string       `json:"features,omitempty"`
	Images           []ListingImage `json:"images,omitempty"`
	UpdatedAt        *time.Time     `json:"updatedAt,omitempty"`
}

// NewListing возвращает запись со значениями по умолчанию.
func NewListing() Listing {
	return Listing{
		Purpose:  PurposeSale,
		Type:     "APARTMENT",
		Status:   ListingActive,
		Features: []string{},
		Images:   []ListingImage{},
	}
}

// Card - краткое представление объявления для списков.
func (l Listing) Card() ListingCard {
	card := ListingCard{
		ID:           l.ID,
		Code:         l.Code,
		Title:        l.Title,
		Purpose:      l.Purpose,
		Status:       l.Status,
		Neighborhood: l.Address.Neighborhood,
		City:         l.Address.City,
	}
	switch {
	case l.SalePrice != nil:
		card.Price = *l.SalePrice
	case l.RentPrice != nil:
		card.Price = *l.RentPrice
	}
	for _, img := range l.Images {
		if img.Cover {
			card.CoverImage = img.URL
			break
		}
	}
	if card.CoverImage == "" && len(l.Images) > 0 {
		card.CoverImage = l.Images[0].URL
	}
	return card
}

// ListingCard - карточка объявления в поиске, избранном и на вкладке сделки.
type ListingCard struct {
	ID           string
	Code         string
	Title        string
	Price        float64
	Purpose      ListingPurpose
	Status       ListingStatus
	Neighborhood string
	City         string
	CoverImage   string
}

// ListingPage - страница результатов поиска.
type ListingPage struct {
	Items   []ListingCard
	Total   int64
	Page    int
	PerPage int
}

// FavoritesPage - страница избранного пользователя.
type FavoritesPage struct {
	Listings     []ListingCard
	TotalCount   int64
	CurrentPage  int
	ItemsPerPage int
}

// PaginatedFavoriteIDs - страница идентификаторов избранного от удаленного API.
type PaginatedFavoriteIDs struct {
	ListingIDs []string
	TotalCount int64
}
