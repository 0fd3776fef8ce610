package session

// DTOs for API requests

type CreateSessionDTO struct {
	PartnerID int64 `json:"partner_id" validate:"required,min=1"`
}

type SubmitPreferencesDTO struct {
	Cuisines            []string `json:"cuisines" validate:"max=20,dive,min=1,max=50"`
	PriceTiers          []string `json:"price_tiers" validate:"max=4,dive,oneof=$ $$ $$$ $$$$"`
	TimesOfDay          []string `json:"times_of_day" validate:"max=10,dive,oneof=morning brunch lunch afternoon dinner late-night"`
	Vibes               []string `json:"vibes" validate:"max=20,dive,min=1,max=50"`
	MaxDistanceKm       float64  `json:"max_distance_km" validate:"omitempty,min=0,max=100"`
	DietaryRestrictions []string `json:"dietary_restrictions" validate:"max=20,dive,min=1,max=50"`
}

// ToPreferenceSet converts the request payload into the stored form
func (d *SubmitPreferencesDTO) ToPreferenceSet() *PreferenceSet {
	return &PreferenceSet{
		Cuisines:            d.Cuisines,
		PriceTiers:          d.PriceTiers,
		TimesOfDay:          d.TimesOfDay,
		Vibes:               d.Vibes,
		MaxDistanceKm:       d.MaxDistanceKm,
		DietaryRestrictions: d.DietaryRestrictions,
	}
}

type SelectVenueDTO struct {
	VenueID string `json:"venue_id" validate:"required"`
	Message string `json:"message" validate:"omitempty,max=500"`
}
