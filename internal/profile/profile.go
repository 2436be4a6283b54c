// Package profile holds the semi-structured user data that form fields are
// filled from, and resolves dotted attribute paths against it.
package profile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Gender values as stored in a profile
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// Child is a dependent the form is usually about
type Child struct {
	FirstName         string `json:"first_name" yaml:"first_name"`
	LastName          string `json:"last_name" yaml:"last_name"`
	DateOfBirth       string `json:"date_of_birth" yaml:"date_of_birth"`
	Gender            string `json:"gender" yaml:"gender"`
	Nationality       string `json:"nationality" yaml:"nationality"`
	BirthPlace        string `json:"birth_place" yaml:"birth_place"`
	PreferredLanguage string `json:"preferred_language" yaml:"preferred_language"`
	Allergies         string `json:"allergies" yaml:"allergies"`
	SpecialNeeds      string `json:"special_needs" yaml:"special_needs"`
	MedicalConditions string `json:"medical_conditions" yaml:"medical_conditions"`
	Notes             string `json:"notes" yaml:"notes"`
	PreviousSchool    string `json:"previous_school" yaml:"previous_school"`
	SchoolGrade       string `json:"school_grade" yaml:"school_grade"`
}

// Profile is the user filling the form
type Profile struct {
	FirstName        string  `json:"first_name" yaml:"first_name"`
	LastName         string  `json:"last_name" yaml:"last_name"`
	PartnerFirstName string  `json:"partner_first_name" yaml:"partner_first_name"`
	PartnerLastName  string  `json:"partner_last_name" yaml:"partner_last_name"`
	Gender           string  `json:"gender" yaml:"gender"`
	Email            string  `json:"email" yaml:"email"`
	Phone            string  `json:"phone" yaml:"phone"`
	PartnerEmail     string  `json:"partner_email" yaml:"partner_email"`
	PartnerPhone     string  `json:"partner_phone" yaml:"partner_phone"`
	Address          string  `json:"address" yaml:"address"`
	CurrentAddress   string  `json:"current_address" yaml:"current_address"`
	Signature        string  `json:"signature" yaml:"signature"`
	Children         []Child `json:"children" yaml:"children"`
}

// Parse decodes a JSON profile
func Parse(data []byte) (*Profile, error) {
	var p Profile
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	return &p, nil
}

// LoadFile reads a profile from a .json, .yaml or .yml file
func LoadFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var p Profile
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to parse profile: %w", err)
		}
		return &p, nil
	default:
		return Parse(data)
	}
}

// FirstChild returns the first child, or an empty Child
func (p *Profile) FirstChild() Child {
	if p == nil || len(p.Children) == 0 {
		return Child{}
	}
	return p.Children[0]
}

// HomeAddress returns the postal address as a single line
func (p *Profile) HomeAddress() string {
	if p.Address != "" {
		return p.Address
	}
	return p.CurrentAddress
}

// ParsedAddress splits the home address into components
func (p *Profile) ParsedAddress() Address {
	return ParseAddress(p.HomeAddress())
}

// FullName joins first and last name
func (p *Profile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// SecondParentFirstName is the partner's first name. Without a partner on
// record the user's own name is used, unless the user is female.
func (p *Profile) SecondParentFirstName() string {
	if p.PartnerFirstName != "" {
		return p.PartnerFirstName
	}
	if NormalizeGender(p.Gender) != GenderFemale {
		return p.FirstName
	}
	return ""
}

// SecondParentLastName is the partner's last name, or the user's
func (p *Profile) SecondParentLastName() string {
	return firstNonEmpty(p.PartnerLastName, p.LastName)
}

// NormalizeGender maps German and English spellings onto male/female
func NormalizeGender(g string) string {
	switch strings.ToLower(strings.TrimSpace(g)) {
	case "male", "m", "männlich", "maennlich", "mann", "junge", "boy":
		return GenderMale
	case "female", "f", "w", "weiblich", "frau", "mädchen", "girl":
		return GenderFemale
	default:
		return ""
	}
}

// GermanGender renders a gender for German forms
func GermanGender(g string) string {
	switch NormalizeGender(g) {
	case GenderMale:
		return "männlich"
	case GenderFemale:
		return "weiblich"
	default:
		return ""
	}
}

// Resolve returns the value at a dotted path such as "child.first_name",
// "user.address.city", "child.gender.female" or "admin.current_date".
// Unknown paths resolve to "".
func (p *Profile) Resolve(path string, now time.Time) string {
	path = strings.ToLower(strings.TrimSpace(path))
	if p == nil || path == "" {
		return ""
	}

	switch {
	case strings.Contains(path, "current_date"):
		return FormatDate(now)
	case strings.Contains(path, "signature"):
		return p.Signature
	}

	if base, ok := strings.CutSuffix(path, ".male"); ok && strings.HasSuffix(base, "gender") {
		return yesIf(NormalizeGender(p.lookup(base)) == GenderMale)
	}
	if base, ok := strings.CutSuffix(path, ".female"); ok && strings.HasSuffix(base, "gender") {
		return yesIf(NormalizeGender(p.lookup(base)) == GenderFemale)
	}

	value := p.lookup(path)
	if strings.HasSuffix(path, "date_of_birth") {
		return FormatGermanDate(value)
	}
	return value
}

func (p *Profile) lookup(path string) string {
	scope, attr, found := strings.Cut(path, ".")
	if !found {
		return p.userAttr(path)
	}

	switch scope {
	case "child", "children":
		if len(p.Children) == 0 {
			return ""
		}
		return p.Children[0].attr(attr)
	case "user", "profile", "parent":
		return p.userAttr(attr)
	case "partner":
		switch attr {
		case "first_name":
			return p.PartnerFirstName
		case "last_name":
			return p.PartnerLastName
		case "phone":
			return p.PartnerPhone
		case "email":
			return p.PartnerEmail
		}
	}
	return ""
}

func (p *Profile) userAttr(attr string) string {
	switch attr {
	case "first_name":
		return p.FirstName
	case "last_name":
		return p.LastName
	case "full_name", "name":
		return p.FullName()
	case "gender":
		return p.Gender
	case "email":
		return p.Email
	case "phone", "mobile":
		return p.Phone
	case "partner_first_name":
		return p.PartnerFirstName
	case "partner_last_name":
		return p.PartnerLastName
	case "partner_email":
		return p.PartnerEmail
	case "partner_phone":
		return p.PartnerPhone
	case "address":
		return p.HomeAddress()
	case "address.street":
		return p.ParsedAddress().Street
	case "address.house_number":
		return p.ParsedAddress().HouseNumber
	case "address.postal_code":
		return p.ParsedAddress().PostalCode
	case "address.city":
		return p.ParsedAddress().City
	}
	return ""
}

func (c Child) attr(attr string) string {
	switch attr {
	case "first_name":
		return c.FirstName
	case "last_name":
		return c.LastName
	case "date_of_birth", "birth_date":
		return c.DateOfBirth
	case "gender":
		return c.Gender
	case "nationality":
		return c.Nationality
	case "birth_place":
		return c.BirthPlace
	case "preferred_language", "language":
		return c.PreferredLanguage
	case "allergies":
		return c.Allergies
	case "special_needs":
		return c.SpecialNeeds
	case "medical_conditions":
		return c.MedicalConditions
	case "notes":
		return c.Notes
	case "previous_school":
		return c.PreviousSchool
	case "school_grade", "grade":
		return c.SchoolGrade
	}
	return ""
}

func yesIf(b bool) string {
	if b {
		return "Yes"
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
