package model

import "time"

// Rider is the profile metadata of a rider. Name is the display name as it
// appears in result tables ("POGAČAR Tadej").
type Rider struct {
	Name        string
	Nationality string
	BirthDate   time.Time
}

// HasProfile reports whether the rider carries the metadata needed for
// filtering (nationality and birth date).
func (r Rider) HasProfile() bool {
	return r.Nationality != "" && !r.BirthDate.IsZero()
}

// Age returns the rider's age in whole years at asOf. The second return is
// false when the birth date is unknown.
func (r Rider) Age(asOf time.Time) (int, bool) {
	if r.BirthDate.IsZero() {
		return 0, false
	}
	years := asOf.Year() - r.BirthDate.Year()
	if !sameOrAfterBirthday(asOf, r.BirthDate) {
		years--
	}
	if years < 0 {
		return 0, true
	}
	return years, true
}

func sameOrAfterBirthday(asOf, birth time.Time) bool {
	if asOf.Month() != birth.Month() {
		return asOf.Month() > birth.Month()
	}
	return asOf.Day() >= birth.Day()
}
