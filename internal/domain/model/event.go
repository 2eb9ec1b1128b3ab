// Package model contains the race-result data model shared by every layer:
// race events, riders, three-state outcomes and the sparse results store.
package model

import (
	"fmt"
	"strings"
)

// RaceClass is the UCI class of a race.
type RaceClass int

// Known race classes. ClassUnknown is never produced by ParseRaceClass.
const (
	ClassUnknown RaceClass = iota
	ClassUWT
	ClassPro
	Class1
	Class2
)

// String returns the class code as it appears after the dot in "2.UWT".
func (c RaceClass) String() string {
	switch c {
	case ClassUWT:
		return "UWT"
	case ClassPro:
		return "Pro"
	case Class1:
		return "1"
	case Class2:
		return "2"
	default:
		return "unknown"
	}
}

// ParseRaceClass maps a class code ("UWT", "Pro", "1", "2") to a RaceClass.
// Full codes like "2.UWT" are accepted too; only the part after the dot is used.
func ParseRaceClass(code string) (RaceClass, error) {
	c := strings.TrimSpace(code)
	if _, after, ok := strings.Cut(c, "."); ok {
		c = after
	}
	switch c {
	case "UWT":
		return ClassUWT, nil
	case "Pro":
		return ClassPro, nil
	case "1":
		return Class1, nil
	case "2":
		return Class2, nil
	}
	return ClassUnknown, fmt.Errorf("%w: %q", ErrUnknownClass, code)
}

// RaceEvent identifies one scored outcome: a one-day race, a stage, or the
// general classification of a multi-stage race. Immutable once built.
type RaceEvent struct {
	Year int
	// Slug is the race path without the "race/" prefix, e.g.
	// "tour-de-france/2023/stage-4". A trailing slash marks the race itself
	// (one-day result or GC of a stage race).
	Slug string
	// ClassCode is the raw calendar code, e.g. "2.UWT" or "1.Pro".
	ClassCode string
}

// NewRaceEvent builds a RaceEvent, normalizing the slug.
func NewRaceEvent(year int, slug, classCode string) RaceEvent {
	return RaceEvent{
		Year:      year,
		Slug:      strings.TrimPrefix(strings.TrimSpace(slug), "race/"),
		ClassCode: strings.TrimSpace(classCode),
	}
}

// Key uniquely identifies the event across years and classes.
func (e RaceEvent) Key() string {
	return fmt.Sprintf("%d|%s|%s", e.Year, e.Slug, e.ClassCode)
}

// Class parses the race class part of ClassCode.
func (e RaceEvent) Class() (RaceClass, error) {
	return ParseRaceClass(e.ClassCode)
}

// IsMultiStage reports whether the event belongs to a stage race ("2.x").
func (e RaceEvent) IsMultiStage() bool {
	return strings.HasPrefix(e.ClassCode, "2")
}

// IsGeneralClassification reports whether the event is the aggregate GC
// outcome of a stage race.
func (e RaceEvent) IsGeneralClassification() bool {
	return e.IsMultiStage() && strings.HasSuffix(e.Slug, "/")
}

// IsStage reports whether the event is a single stage within a stage race.
func (e RaceEvent) IsStage() bool {
	return e.IsMultiStage() && !e.IsGeneralClassification()
}
