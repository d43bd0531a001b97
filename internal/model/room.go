package model

// Room is a bookable room.  Rooms are addressed by name-like numbers
// ("Berlin", "204") in orders; the entity itself is only read here.
type Room struct {
	Identity `yaml:",inline"`
	Number   string  `json:"number" yaml:"number"`
	Type     string  `json:"type" yaml:"type"`
	Floor    string  `json:"floor,omitempty" yaml:"floor,omitempty"`
	Status   string  `json:"status" yaml:"status"`
	Price    float64 `json:"price" yaml:"price"`
}
