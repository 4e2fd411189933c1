package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DifficultyEasy      = "easy"
	DifficultyMedium    = "medium"
	DifficultyDifficult = "difficult"
)

// DefaultRatingsAverage is the neutral rating a tour carries before (or
// after) it has any reviews.
const DefaultRatingsAverage = 4.5

// Location is a GeoJSON point. Coordinates are [longitude, latitude].
type Location struct {
	Type        string    `json:"type" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates"`
	Address     string    `json:"address,omitempty" bson:"address,omitempty"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	Day         int       `json:"day,omitempty" bson:"day,omitempty"`
}

// Tour is a catalog item. Prices are integer minor units (cents).
// RatingsAverage and RatingsQuantity are derived from the review set and are
// never client-writable; Secret tours are excluded from default listings.
type Tour struct {
	ID              primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Name            string               `json:"name" bson:"name"`
	Slug            string               `json:"slug" bson:"slug"`
	Duration        int                  `json:"duration" bson:"duration"`
	MaxGroupSize    int                  `json:"max_group_size" bson:"max_group_size"`
	Difficulty      string               `json:"difficulty" bson:"difficulty"`
	RatingsAverage  float64              `json:"ratings_average" bson:"ratings_average"`
	RatingsQuantity int64                `json:"ratings_quantity" bson:"ratings_quantity"`
	Price           int64                `json:"price" bson:"price"`
	PriceDiscount   int64                `json:"price_discount,omitempty" bson:"price_discount,omitempty"`
	Summary         string               `json:"summary" bson:"summary"`
	Description     string               `json:"description,omitempty" bson:"description,omitempty"`
	ImageCover      string               `json:"image_cover" bson:"image_cover"`
	Images          []string             `json:"images,omitempty" bson:"images,omitempty"`
	StartDates      []time.Time          `json:"start_dates,omitempty" bson:"start_dates,omitempty"`
	Secret          bool                 `json:"-" bson:"secret_tour"`
	StartLocation   Location             `json:"start_location" bson:"start_location"`
	Locations       []Location           `json:"locations,omitempty" bson:"locations,omitempty"`
	GuideIDs        []primitive.ObjectID `json:"guide_ids,omitempty" bson:"guides,omitempty"`
	CreatedAt       time.Time            `json:"created_at" bson:"created_at"`

	// Expanded relations, filled explicitly by the tour handler on reads
	// that request them. Never persisted.
	Guides  []User   `json:"guides,omitempty" bson:"-"`
	Reviews []Review `json:"reviews,omitempty" bson:"-"`
}

// Validate checks cross-field constraints that a per-field schema cannot
// express. It is called on every create and full update.
func (t *Tour) Validate() error {
	var problems []string
	if n := len(t.Name); n < 10 || n > 40 {
		problems = append(problems, "name must be between 10 and 40 characters")
	}
	switch t.Difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyDifficult:
	default:
		problems = append(problems, "difficulty must be one of: easy, medium, difficult")
	}
	if t.PriceDiscount != 0 && t.PriceDiscount >= t.Price {
		problems = append(problems, fmt.Sprintf("price discount (%d) must be below the regular price", t.PriceDiscount))
	}
	if len(problems) > 0 {
		return errors.New("invalid input data: " + strings.Join(problems, ". "))
	}
	return nil
}

// Slugify derives a url-safe, lowercase slug from a tour name.
func Slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
