package domain

import "time"

// SearchResult is a single organic web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Place is a point of interest returned by a place lookup.
type Place struct {
	Name        string   `json:"name"`
	Address     string   `json:"address,omitempty"`
	Category    string   `json:"category,omitempty"`
	Rating      float64  `json:"rating,omitempty"`
	RatingCount int      `json:"rating_count,omitempty"`
	Website     string   `json:"website,omitempty"`
	Reviews     []string `json:"reviews,omitempty"`
}

// TripInfo holds the attributes collected from the traveller.
// Zero values mean "not yet known".
type TripInfo struct {
	Destination         string   `json:"destination,omitempty" mapstructure:"destination"`
	TripType            string   `json:"trip_type,omitempty" mapstructure:"trip_type"`
	DurationDays        int      `json:"duration_days,omitempty" mapstructure:"duration_days"`
	Travelers           string   `json:"travelers,omitempty" mapstructure:"travelers"`
	Budget              string   `json:"budget,omitempty" mapstructure:"budget"`
	TravelStyle         string   `json:"travel_style,omitempty" mapstructure:"travel_style"`
	Interests           []string `json:"interests,omitempty" mapstructure:"interests"`
	StartDate           string   `json:"start_date,omitempty" mapstructure:"start_date"`
	SpecialRequirements string   `json:"special_requirements,omitempty" mapstructure:"special_requirements"`
}

// Trip is a finished plan as archived on disk.
type Trip struct {
	SessionID string    `json:"session_id"`
	Info      TripInfo  `json:"trip_info"`
	Guide     string    `json:"guide"`
	Revisions int       `json:"revisions"`
	SavedAt   time.Time `json:"saved_at"`
}
