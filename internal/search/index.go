// Package search maintains the property search index.
package search

import (
	"context"

	"findam-backend/internal/models"
)

// PropertyDoc is the indexed shape of a property.
type PropertyDoc struct {
	ID             string  `json:"id"`
	OwnerID        string  `json:"owner_id"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	PropertyType   string  `json:"property_type"`
	CityID         int64   `json:"city_id"`
	NeighborhoodID int64   `json:"neighborhood_id"`
	Capacity       int     `json:"capacity"`
	Bedrooms       int     `json:"bedrooms"`
	PricePerNight  int64   `json:"price_per_night"`
	AvgRating      float64 `json:"avg_rating"`
	IsPublished    bool    `json:"is_published"`
}

// Query carries the search criteria. Zero values mean "any".
type Query struct {
	Text           string
	CityID         int64
	NeighborhoodID int64
	PropertyType   string
	MinPrice       int64
	MaxPrice       int64
	MinCapacity    int
	Limit          int
	Offset         int
}

// Index is the property search backend. The Elasticsearch implementation is
// the default; callers fall back to SQL search when it is unavailable.
type Index interface {
	IndexProperty(ctx context.Context, doc PropertyDoc) error
	DeleteProperty(ctx context.Context, propertyID string) error
	Search(ctx context.Context, q Query) ([]string, int64, error)
}

// DocFromProperty maps a property row to its index document.
func DocFromProperty(p *models.Property) PropertyDoc {
	return PropertyDoc{
		ID:             p.ID,
		OwnerID:        p.OwnerID,
		Title:          p.Title,
		Description:    p.Description,
		PropertyType:   p.PropertyType,
		CityID:         p.CityID,
		NeighborhoodID: p.NeighborhoodID,
		Capacity:       p.Capacity,
		Bedrooms:       p.Bedrooms,
		PricePerNight:  p.PricePerNight,
		AvgRating:      p.AvgRating,
		IsPublished:    p.IsPublished,
	}
}
