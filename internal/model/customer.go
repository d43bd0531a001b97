package model

// Customer is a registered hotel guest.  Orders reference customers by
// canonical id.
//
// Fields:
//  Name       – guest full name.
//  Email      – contact address, may be empty for walk-ins.
//  Phone      – contact number.
//  RoomNumber – room the guest currently occupies.
type Customer struct {
	Identity   `yaml:",inline"`
	Name       string `json:"name" yaml:"name"`
	Email      string `json:"email,omitempty" yaml:"email,omitempty"`
	Phone      string `json:"phone,omitempty" yaml:"phone,omitempty"`
	RoomNumber string `json:"roomNumber,omitempty" yaml:"roomNumber,omitempty"`
}
