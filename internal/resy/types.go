package resy

// Slot is one bookable reservation opportunity.
type Slot struct {
	Token  string // opaque config token, keyed into the preview call
	Type   string // e.g. "Dining Room", "Bar"
	Start  string // "2006-01-02 15:04:05" in the venue's local time
	End    string
	IsPaid bool
}

// SlotQuery describes one slot search.
type SlotQuery struct {
	VenueID   int
	Day       string // YYYY-MM-DD
	PartySize int
	TimeStart string // optional "HH:MM", inclusive lower bound
	TimeEnd   string // optional "HH:MM", inclusive upper bound
}

// Venue is the result of resolving a venue URL. SessionToken is optional
// at this boundary; it is empty when talking to the platform directly.
type Venue struct {
	ID           int
	Name         string
	SessionToken string
}

// AuthRequest carries either primary credentials or a cached long-lived
// token. When CachedToken is set the primary fields are ignored.
type AuthRequest struct {
	Email       string
	Password    string
	CachedToken string
}

// AuthResult is a successful authentication. LongLivedToken is only set
// when the platform minted a fresh credential worth caching.
type AuthResult struct {
	SessionToken   string
	LongLivedToken string
}

// PaymentMethod is a payment instrument on file with the platform.
type PaymentMethod struct {
	ID int64
}

// Preview is a reservation hold: the token that commits it plus the
// payment methods available to commit with.
type Preview struct {
	BookToken      string
	PaymentMethods []PaymentMethod
}

// SearchQuery describes a venue text search around a coordinate.
type SearchQuery struct {
	Query     string
	Latitude  float64
	Longitude float64
	Day       string // optional YYYY-MM-DD slot filter
	PartySize int    // optional, used with Day
	PerPage   int
}

// SearchHit is one venue returned by SearchVenues.
type SearchHit struct {
	VenueID      int
	Name         string
	Cuisine      string
	Neighborhood string
	Region       string
}
