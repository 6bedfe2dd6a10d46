package domain

// Zone is one row of the taxi zone lookup table.
type Zone struct {
	LocationID  int    `json:"location_id"`
	Borough     string `json:"borough,omitempty"`
	Zone        string `json:"zone"`
	ServiceZone string `json:"service_zone,omitempty"`
}
