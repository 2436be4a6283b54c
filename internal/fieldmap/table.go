package fieldmap

import (
	"fmt"
	"time"

	"github.com/platinummonkey/formpilot/internal/profile"
)

// Entry is one pattern of the mapping table
type Entry struct {
	// Pattern is the lowercase field-name fragment the entry matches
	Pattern string

	// Value is what a matching field is filled with
	Value string

	// Source is the profile path the value was drawn from
	Source string
}

// Table is an ordered mapping table. Earlier entries win ties.
type Table []Entry

type tableBuilder struct {
	entries Table
}

func (b *tableBuilder) add(source, value string, patterns ...string) {
	for _, p := range patterns {
		b.entries = append(b.entries, Entry{Pattern: p, Value: value, Source: source})
	}
}

// BuildTable derives the mapping table for a profile. Parent fields come
// first, then child-specific fields, then generic and administrative ones,
// and boolean checkbox defaults last.
func BuildTable(p *profile.Profile, now time.Time) Table {
	if p == nil {
		p = &profile.Profile{}
	}
	b := &tableBuilder{}
	child := p.FirstChild()
	addr := p.ParsedAddress()
	today := profile.FormatDate(now)

	childLast := firstNonEmpty(child.LastName, p.LastName)
	childName := joinName(child.FirstName, childLast)
	partnerFirst := p.SecondParentFirstName()
	partnerLast := p.SecondParentLastName()

	// numbered parents alternate user, partner, partner, user, partner, user
	for i, partner := range []bool{false, true, true, false, true, false} {
		n := i + 1
		first, last := p.FirstName, p.LastName
		firstSrc, lastSrc := "user.first_name", "user.last_name"
		if partner {
			first, last = partnerFirst, partnerLast
			firstSrc, lastSrc = "partner.first_name", "partner.last_name"
		}
		b.add(firstSrc, first, fmt.Sprintf("vorname_%d", n))
		b.add(lastSrc, last, fmt.Sprintf("name_%d", n), fmt.Sprintf("nachname_%d", n), fmt.Sprintf("familienname_%d", n))
	}

	b.add("child.name", childName, "kind_name", "child_name")
	b.add("child.first_name", child.FirstName, "vorname_kind")
	b.add("child.last_name", childLast, "nachname_kind", "familienname_kind")

	b.add("child.last_name", childLast, "name", "nachname", "familienname", "surname")
	b.add("child.first_name", child.FirstName, "vorname", "firstname")

	b.add("child.date_of_birth", profile.FormatGermanDate(child.DateOfBirth),
		"geburtsdatum", "geb_datum", "birth_date", "date_of_birth", "geburtstag")
	b.add("child.gender", profile.GermanGender(child.Gender), "geschlecht", "gender")
	b.add("child.nationality", child.Nationality,
		"nationalität", "nationality", "staatsangehörigkeit", "staatsangehoerigkeit", "citizenship")
	b.add("child.birth_place", child.BirthPlace,
		"geburtsort", "birth_place", "place_of_birth", "bürgerort", "buergerort")
	b.add("child.preferred_language", child.PreferredLanguage,
		"erstsprache", "first_language", "muttersprache", "heimatsprache")
	if child.PreferredLanguage != "" {
		b.add("child.preferred_language", child.PreferredLanguage+"/Deutsch", "umgangssprache")
	} else {
		b.add("child.preferred_language", "", "umgangssprache")
	}

	for i, contact := range []struct{ phone, email, src string }{
		{p.Phone, p.Email, "user"},
		{firstNonEmpty(p.PartnerPhone, p.Phone), firstNonEmpty(p.PartnerEmail, p.Email), "partner"},
	} {
		n := i + 1
		b.add("user.address", p.HomeAddress(), fmt.Sprintf("adresse_%d", n))
		b.add("user.address.street", addr.Street, fmt.Sprintf("strasse_%d", n))
		b.add("user.address.postal_code", addr.PostalCode, fmt.Sprintf("plz_%d", n))
		b.add("user.address.city", addr.City, fmt.Sprintf("ort_%d", n))
		b.add(contact.src+".phone", contact.phone, fmt.Sprintf("mobile_%d", n), fmt.Sprintf("telefon_%d", n))
		b.add(contact.src+".email", contact.email, fmt.Sprintf("e-mail_%d", n), fmt.Sprintf("email_%d", n))
	}

	b.add("user.first_name", p.FirstName, "mutter_vorname")
	b.add("user.last_name", p.LastName, "mutter_nachname")
	b.add("user.name", p.FullName(), "mutter_name")
	b.add("user.first_name", p.FirstName, "mother_firstname")
	b.add("user.last_name", p.LastName, "mother_lastname")
	b.add("user.name", p.FullName(), "mother_name")

	b.add("partner.first_name", partnerFirst, "vater_vorname")
	b.add("partner.last_name", partnerLast, "vater_nachname")
	b.add("partner.name", joinName(partnerFirst, partnerLast), "vater_name")
	b.add("partner.first_name", partnerFirst, "father_firstname")
	b.add("partner.last_name", partnerLast, "father_lastname")
	b.add("partner.name", joinName(partnerFirst, partnerLast), "father_name")

	for _, prefix := range []string{"eltern", "erziehungsberechtigte"} {
		b.add("user.first_name", p.FirstName, prefix+"_vorname")
		b.add("user.last_name", p.LastName, prefix+"_nachname")
	}
	b.add("user.first_name", p.FirstName, "guardian_firstname")
	b.add("user.last_name", p.LastName, "guardian_lastname")

	b.add("user.address", p.HomeAddress(), "adresse", "address", "anschrift", "wohnort", "wohnadresse")
	b.add("user.address.street", addr.Street, "strasse", "street", "strassenname")
	b.add("user.address.house_number", addr.HouseNumber, "hausnummer", "house_number")
	b.add("user.address.postal_code", addr.PostalCode, "plz", "postleitzahl", "postal_code", "zip_code")
	b.add("user.address.city", addr.City, "ort", "stadt", "city", "wohnort_stadt")

	b.add("user.phone", p.Phone, "telefon", "telefonnummer", "phone", "mobile", "handy",
		"mobilnummer", "mobile_number", "phone_number", "tel")
	b.add("user.email", p.Email, "email", "e_mail", "e-mail", "e.mail", "email_address", "mail")

	b.add("child.allergies", child.Allergies, "allergien", "allergies", "allergy", "unverträglichkeiten")
	b.add("child.special_needs", firstNonEmpty(child.SpecialNeeds, child.MedicalConditions),
		"besondere_bedürfnisse", "special_needs")
	b.add("child.medical_conditions", child.MedicalConditions,
		"medizinische_hinweise", "medical_conditions", "gesundheit")
	b.add("child.notes", firstNonEmpty(child.Notes, child.Allergies),
		"bemerkungen", "notes", "anmerkungen", "comments", "hinweise")

	b.add("child.previous_school", child.PreviousSchool,
		"bisherige_schule", "previous_school", "frühere_schule", "alte_schule")
	b.add("child.school_grade", child.SchoolGrade,
		"klasse", "schulklasse", "grade", "school_grade", "stufe")

	placeDate := today
	if addr.City != "" {
		placeDate = addr.City + ", " + today
	}
	b.add("admin.current_date", today, "datum", "date", "heute", "today", "unterschrift_datum", "signature_date")
	b.add("admin.place_date", placeDate, "ort_datum", "place_date")
	b.add("admin.current_date", today, "eintrittsdatum", "entry_date", "gewünschtes_eintrittsdatum", "desired_entry_date")

	male := profile.NormalizeGender(child.Gender) == profile.GenderMale
	female := profile.NormalizeGender(child.Gender) == profile.GenderFemale
	b.add("child.gender.male", boolValue(male), "männlich", "male")
	b.add("child.gender.female", boolValue(female), "weiblich", "female")
	b.add("default", "true", "wohnhaft_bei_eltern", "living_with_parents", "beide_elternteile", "both_parents")
	b.add("default", "false", "alleinerziehend", "single_parent", "ja", "yes")
	b.add("default", "true", "nein", "no")
	b.add("default", "false", "tagesschule_ja")
	b.add("default", "true", "tagesschule_nein", "deutsch_gut")
	b.add("default", "false", "deutsch_mittel", "deutsch_keine")
	b.add("default", "true", "german_good")
	b.add("default", "false", "german_medium", "german_none")

	return b.entries
}

func boolValue(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
