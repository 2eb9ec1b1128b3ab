package service

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sborms/cyclingsimilarity.com/internal/domain/model"
)

//go:embed calendar.yaml
var defaultCalendar string

// CalendarRace is one race the scrape job visits every configured year.
type CalendarRace struct {
	Name string `yaml:"name"`
	// Class is the full code, e.g. "2.UWT": leading 1 or 2 for one-day or
	// stage race, then the race class.
	Class string `yaml:"class"`
	Slug  string `yaml:"slug"`
}

// ParseCalendar decodes and validates a YAML race list.
func ParseCalendar(r io.Reader) ([]CalendarRace, error) {
	var races []CalendarRace
	if err := yaml.NewDecoder(r).Decode(&races); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}
	for i, race := range races {
		if strings.TrimSpace(race.Slug) == "" {
			return nil, fmt.Errorf("calendar entry %d (%s): empty slug", i+1, race.Name)
		}
		if !strings.HasPrefix(race.Class, "1.") && !strings.HasPrefix(race.Class, "2.") {
			return nil, fmt.Errorf("calendar entry %d (%s): class %q must start with 1. or 2.", i+1, race.Name, race.Class)
		}
		if _, err := model.ParseRaceClass(race.Class); err != nil {
			return nil, fmt.Errorf("calendar entry %d (%s): %w", i+1, race.Name, err)
		}
	}
	return races, nil
}

// LoadCalendar reads the calendar at path, or the embedded one when path is
// empty.
func LoadCalendar(path string) ([]CalendarRace, error) {
	if path == "" {
		return ParseCalendar(strings.NewReader(defaultCalendar))
	}
	f, err := os.Open(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("open calendar: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ParseCalendar(f)
}
