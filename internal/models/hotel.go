package models

// Hotel is the inventory parent for rooms and apartments. The gateway
// only reads these; inventory is owned by the remote API.
type Hotel struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	City        string  `json:"city,omitempty"`
	Address     string  `json:"address,omitempty"`
	Stars       int     `json:"stars,omitempty"`
	AvgRating   float64 `json:"avgRating,omitempty"`
	Description string  `json:"description,omitempty"`
}

// Room is a bookable hotel room.
type Room struct {
	ID            string  `json:"id"`
	HotelID       string  `json:"hotelId"`
	Name          string  `json:"name"`
	MaxCapacity   int     `json:"maxCapacity"`
	PricePerNight float64 `json:"pricePerNight"`
}

// Apartment is a bookable apartment unit.
type Apartment struct {
	ID            string  `json:"id"`
	HotelID       string  `json:"hotelId"`
	Name          string  `json:"name"`
	MaxCapacity   int     `json:"maxCapacity"`
	PricePerNight float64 `json:"pricePerNight"`
	Floor         int     `json:"floor,omitempty"`
}
