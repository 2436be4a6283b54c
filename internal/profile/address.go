package profile

import (
	"regexp"
	"strings"
)

var (
	// "Bahnhofstrasse 12a, 8001 Zürich"
	swissAddress = regexp.MustCompile(`^(.+?)\s+(\d+[a-zA-Z]?),?\s*(\d{4})\s+(.+)$`)
	// "..., 8001 Zürich"
	postalCity = regexp.MustCompile(`(\d{4})\s+(.+)$`)
)

// Address is a postal address split into components
type Address struct {
	Street      string `json:"street"`
	HouseNumber string `json:"house_number"`
	PostalCode  string `json:"postal_code"`
	City        string `json:"city"`
}

// ParseAddress splits a single-line Swiss address. Street includes the
// house number. Unrecognized input is returned whole as the street.
func ParseAddress(address string) Address {
	address = strings.TrimSpace(address)
	if address == "" {
		return Address{}
	}

	if m := swissAddress.FindStringSubmatch(address); m != nil {
		return Address{
			Street:      strings.TrimSpace(m[1] + " " + m[2]),
			HouseNumber: m[2],
			PostalCode:  m[3],
			City:        strings.TrimSpace(m[4]),
		}
	}

	if loc := postalCity.FindStringSubmatchIndex(address); loc != nil {
		before := strings.TrimSpace(address[:loc[0]])
		return Address{
			Street:     strings.TrimSpace(strings.TrimSuffix(before, ",")),
			PostalCode: address[loc[2]:loc[3]],
			City:       strings.TrimSpace(address[loc[4]:loc[5]]),
		}
	}

	return Address{Street: address}
}
