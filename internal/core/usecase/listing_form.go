package usecase

import (
	"brokerage-backoffice/internal/core/domain"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/mmcloughlin/geohash"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// geohashPrecision - ~5 м, достаточно для поиска по соседним ячейкам.
const geohashPrecision = 9

// AddressForm - адресный блок формы.
type AddressForm struct {
	Street       string   `json:"street"`
	Number       string   `json:"number"`
	Complement   string   `json:"complement"`
	Neighborhood string   `json:"neighborhood"`
	City         string   `json:"city"`
	State        string   `json:"state"`
	ZipCode      string   `json:"zipCode"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
}

// ImageForm - изображение в том порядке, в котором его прислала форма.
type ImageForm struct {
	URL   string `json:"url"`
	Cover bool   `json:"cover"`
}

// ListingForm - форма объявления. Денежные и площадные поля приходят строками в бразильском формате.
type ListingForm struct {
	Title            string      `json:"title"`
	Description      string      `json:"description"`
	Purpose          string      `json:"purpose"`
	Type             string      `json:"type"`
	Status           string      `json:"status"`
	SalePrice        string      `json:"salePrice"`
	RentPrice        string      `json:"rentPrice"`
	CondominiumFee   string      `json:"condominiumFee"`
	IPTU             string      `json:"iptu"`
	TotalArea        string      `json:"totalArea"`
	PrivateArea      string      `json:"privateArea"`
	Bedrooms         *int        `json:"bedrooms"`
	Suites           *int        `json:"suites"`
	Bathrooms        *int        `json:"bathrooms"`
	ParkingSpots     *int        `json:"parkingSpots"`
	Floor            *int        `json:"floor"`
	Furnished        bool        `json:"furnished"`
	Condominium      bool        `json:"condominium"`
	AcceptsFinancing bool        `json:"acceptsFinancing"`
	AcceptsExchange  bool        `json:"acceptsExchange"`
	Featured         bool        `json:"featured"`
	Address          AddressForm `json:"address"`
	Features         []string    `json:"features"`
	Images           []ImageForm `json:"images"`
}

var placeCaser = cases.Title(language.BrazilianPortuguese)

// ToListing очищает форму и собирает запись объявления со значениями по умолчанию.
func (f ListingForm) ToListing() (domain.Listing, error) {
	l := domain.NewListing()
	l.Title = collapseSpaces(f.Title)
	l.Description = strings.TrimSpace(f.Description)
	if p := strings.ToUpper(strings.TrimSpace(f.Purpose)); p != "" {
		l.Purpose = domain.ListingPurpose(p)
	}
	if t := strings.ToUpper(strings.TrimSpace(f.Type)); t != "" {
		l.Type = t
	}
	if s := strings.ToUpper(strings.TrimSpace(f.Status)); s != "" {
		l.Status = domain.ListingStatus(s)
	}

	money := []struct {
		field string
		raw   string
		dst   **float64
	}{
		{"salePrice", f.SalePrice, &l.SalePrice},
		{"rentPrice", f.RentPrice, &l.RentPrice},
		{"condominiumFee", f.CondominiumFee, &l.CondominiumFee},
		{"iptu", f.IPTU, &l.IPTU},
		{"totalArea", f.TotalArea, &l.TotalArea},
		{"privateArea", f.PrivateArea, &l.PrivateArea},
	}
	for _, m := range money {
		v, err := ParseBRL(m.raw)
		if err != nil {
			return domain.Listing{}, domain.NewValidationError(m.field, "must be a non-negative number like 1.234,56")
		}
		*m.dst = v
	}

	l.Bedrooms, l.Suites, l.Bathrooms, l.ParkingSpots, l.Floor = f.Bedrooms, f.Suites, f.Bathrooms, f.ParkingSpots, f.Floor
	l.Furnished = f.Furnished
	l.Condominium = f.Condominium
	l.AcceptsFinancing = f.AcceptsFinancing
	l.AcceptsExchange = f.AcceptsExchange
	l.Featured = f.Featured

	l.Address = sanitizeAddress(f.Address)
	l.Features = uniqueTrimmed(f.Features)
	l.Images = OrderImages(f.Images)
	return l, nil
}

func sanitizeAddress(in AddressForm) domain.Address {
	addr := domain.Address{
		Street:       collapseSpaces(in.Street),
		Number:       strings.TrimSpace(in.Number),
		Complement:   collapseSpaces(in.Complement),
		Neighborhood: titlePlace(in.Neighborhood),
		City:         titlePlace(in.City),
		State:        strings.ToUpper(strings.TrimSpace(in.State)),
		ZipCode:      DigitsOnly(in.ZipCode),
		Latitude:     in.Latitude,
		Longitude:    in.Longitude,
	}
	if addr.Latitude != nil && addr.Longitude != nil {
		addr.Geohash = geohash.EncodeWithPrecision(*addr.Latitude, *addr.Longitude, geohashPrecision)
	}
	return addr
}

func titlePlace(s string) string {
	s = collapseSpaces(s)
	if s == "" {
		return ""
	}
	return placeCaser.String(s)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// DigitsOnly оставляет только цифры (CEP, телефоны).
func DigitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// ParseBRL разбирает сумму в бразильском формате: "R$ 1.234,56", "350.000", "1234.5".
// Пустая строка дает nil.
func ParseBRL(raw string) (*float64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "R$")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	if s == "" {
		return nil, nil
	}

	switch {
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	case strings.Count(s, ".") == 1 && len(s)-strings.Index(s, ".")-1 == 3:
		// "350.000" - разделитель тысяч, а не дробная часть
		s = strings.ReplaceAll(s, ".", "")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, domain.ErrValidation
	}
	return &v, nil
}

func uniqueTrimmed(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = collapseSpaces(s)
		key := strings.ToLower(s)
		if s == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

// OrderImages убирает пустые и повторяющиеся URL и ставит обложку первой.
// Если обложка не отмечена, ей становится первое изображение.
func OrderImages(in []ImageForm) []domain.ListingImage {
	var cover string
	urls := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, img := range in {
		u := strings.TrimSpace(img.URL)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
		if img.Cover && cover == "" {
			cover = u
		}
	}
	if cover != "" {
		ordered := make([]string, 0, len(urls))
		ordered = append(ordered, cover)
		for _, u := range urls {
			if u != cover {
				ordered = append(ordered, u)
			}
		}
		urls = ordered
	}
	return numberImages(urls)
}

// ReorderImages выставляет явный порядок. urls должен быть перестановкой текущих изображений.
func ReorderImages(current []domain.ListingImage, urls []string) ([]domain.ListingImage, error) {
	if len(urls) != len(current) {
		return nil, domain.NewValidationError("images", "new order must list every image exactly once")
	}
	known := make(map[string]bool, len(current))
	for _, img := range current {
		known[img.URL] = false
	}
	for _, u := range urls {
		used, ok := known[u]
		if !ok || used {
			return nil, domain.NewValidationError("images", "new order must list every image exactly once")
		}
		known[u] = true
	}
	return numberImages(urls), nil
}

func numberImages(urls []string) []domain.ListingImage {
	out := make([]domain.ListingImage, len(urls))
	for i, u := range urls {
		out[i] = domain.ListingImage{URL: u, Order: i, Cover: i == 0}
	}
	return out
}
