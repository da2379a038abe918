package models

import "time"

// Property types.
const (
	PropertyTypeApartment = "apartment"
	PropertyTypeHouse     = "house"
	PropertyTypeVilla     = "villa"
	PropertyTypeStudio    = "studio"
	PropertyTypeRoom      = "room"
	PropertyTypeOther     = "other"
)

// Cancellation policies.
const (
	PolicyFlexible = "flexible"
	PolicyModerate = "moderate"
	PolicyStrict   = "strict"
)

// Availability block types.
const (
	BlockTypeBooking  = "booking"
	BlockTypeExternal = "external"
	BlockTypeBlocked  = "blocked"
)

type Property struct {
	ID           string `json:"id"`
	OwnerID      string `json:"owner_id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	PropertyType string `json:"property_type"`

	Capacity  int `json:"capacity"`
	Bedrooms  int `json:"bedrooms"`
	Bathrooms int `json:"bathrooms"`

	CityID         int64   `json:"city_id"`
	NeighborhoodID int64   `json:"neighborhood_id"`
	Address        string  `json:"address"`
	Latitude       float64 `json:"latitude,omitempty"`
	Longitude      float64 `json:"longitude,omitempty"`

	// Amounts are whole FCFA.
	PricePerNight   int64 `json:"price_per_night"`
	PricePerWeek    int64 `json:"price_per_week,omitempty"`
	PricePerMonth   int64 `json:"price_per_month,omitempty"`
	CleaningFee     int64 `json:"cleaning_fee"`
	SecurityDeposit int64 `json:"security_deposit"`

	AllowDiscount      bool   `json:"allow_discount"`
	CancellationPolicy string `json:"cancellation_policy"`

	IsPublished bool `json:"is_published"`
	IsVerified  bool `json:"is_verified"`

	AvgRating   float64 `json:"avg_rating"`
	RatingCount int     `json:"rating_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PriceForNights computes the tiered base price for a stay. Stays of 30
// nights or more bill whole months at the monthly rate and the remainder at
// the nightly rate; shorter stays bill whole weeks at the weekly rate and the
// remainder at the nightly rate.
func (p *Property) PriceForNights(nights int) int64 {
	if nights <= 0 {
		return 0
	}

	if nights >= 30 && p.PricePerMonth > 0 {
		months := int64(nights / 30)
		remaining := int64(nights % 30)
		return months*p.PricePerMonth + remaining*p.PricePerNight
	}

	return p.priceForShortStay(nights)
}

func (p *Property) priceForShortStay(nights int) int64 {
	if nights <= 0 {
		return 0
	}
	if nights >= 7 && p.PricePerWeek > 0 {
		weeks := int64(nights / 7)
		remaining := int64(nights % 7)
		return weeks*p.PricePerWeek + remaining*p.PricePerNight
	}
	return int64(nights) * p.PricePerNight
}

type PropertyImage struct {
	ID         int64     `json:"id"`
	PropertyID string    `json:"property_id"`
	URL        string    `json:"url"`
	IsMain     bool      `json:"is_main"`
	Order      int       `json:"order"`
	Caption    string    `json:"caption,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type Amenity struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Icon     string `json:"icon,omitempty"`
	Category string `json:"category,omitempty"`
}

type City struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Neighborhood struct {
	ID     int64  `json:"id"`
	CityID int64  `json:"city_id"`
	Name   string `json:"name"`
}

// Availability records a period during which the property is NOT available.
type Availability struct {
	ID          int64     `json:"id"`
	PropertyID  string    `json:"property_id"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	BlockType   string    `json:"block_type"`
	BookingID   string    `json:"booking_id,omitempty"`
	ClientName  string    `json:"external_client_name,omitempty"`
	ClientPhone string    `json:"external_client_phone,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type LongStayDiscount struct {
	ID                 int64   `json:"id"`
	PropertyID         string  `json:"property_id"`
	MinDays            int     `json:"min_days"`
	DiscountPercentage float64 `json:"discount_percentage"`
}
