package repository

import (
	"fmt"
	"strconv"
	"time"

	"github.com/sborms/cyclingsimilarity.com/internal/domain/model"
)

// Default storage keys.
const (
	ResultsKey = "results.csv"
	RidersKey  = "riders.csv"
	MarkerKey  = "last_run.json"
)

var (
	resultsColumns = []string{"year", "stage_slug", "class", "rider", "rank"}
	ridersColumns  = []string{"name", "nationality", "birth_date"}
)

const birthDateLayout = "2006-01-02"

// ResultsTable exports every recorded cell of the store in long format.
// Did-not-finish cells are kept as "DNF"; absent cells are not written.
func ResultsTable(s *model.ResultsStore) Table {
	t := Table{Columns: append([]string(nil), resultsColumns...)}
	for _, row := range s.RankRows() {
		year := strconv.Itoa(row.Event.Year)
		for i, rider := range row.Riders {
			t.Rows = append(t.Rows, []string{year, row.Event.Slug, row.Event.ClassCode, rider, row.Outcomes[i].String()})
		}
	}
	return t
}

// RidersTable exports the roster.
func RidersTable(s *model.ResultsStore) Table {
	t := Table{Columns: append([]string(nil), ridersColumns...)}
	for _, r := range s.Roster() {
		birth := ""
		if !r.BirthDate.IsZero() {
			birth = r.BirthDate.Format(birthDateLayout)
		}
		t.Rows = append(t.Rows, []string{r.Name, r.Nationality, birth})
	}
	return t
}

// LoadResultsStore rebuilds a ResultsStore from a results table and an
// optional riders table (pass a zero Table to skip metadata).
func LoadResultsStore(results, riders Table) (*model.ResultsStore, error) {
	idx, err := columnIndex(results, resultsColumns)
	if err != nil {
		return nil, fmt.Errorf("results table: %w", err)
	}
	s := model.NewResultsStore()
	for n, row := range results.Rows {
		year, err := strconv.Atoi(row[idx["year"]])
		if err != nil {
			return nil, fmt.Errorf("%w: results row %d: year %q", ErrFormat, n+1, row[idx["year"]])
		}
		o, err := model.ParseOutcome(row[idx["rank"]])
		if err != nil {
			return nil, fmt.Errorf("results row %d: %w", n+1, err)
		}
		e := model.NewRaceEvent(year, row[idx["stage_slug"]], row[idx["class"]])
		s.Record(e, row[idx["rider"]], o)
	}

	if len(riders.Columns) == 0 {
		return s, nil
	}
	ridx, err := columnIndex(riders, ridersColumns)
	if err != nil {
		return nil, fmt.Errorf("riders table: %w", err)
	}
	for n, row := range riders.Rows {
		r := model.Rider{Name: row[ridx["name"]], Nationality: row[ridx["nationality"]]}
		if v := row[ridx["birth_date"]]; v != "" {
			bd, err := time.Parse(birthDateLayout, v)
			if err != nil {
				return nil, fmt.Errorf("%w: riders row %d: birth_date %q", ErrFormat, n+1, v)
			}
			r.BirthDate = bd
		}
		s.PutRider(r)
	}
	return s, nil
}

// RidersFromTable decodes only the roster.
func RidersFromTable(t Table) ([]model.Rider, error) {
	s, err := LoadResultsStore(Table{Columns: resultsColumns}, t)
	if err != nil {
		return nil, err
	}
	return s.Roster(), nil
}

func columnIndex(t Table, want []string) (map[string]int, error) {
	idx := make(map[string]int, len(want))
	for _, c := range want {
		i := t.Column(c)
		if i < 0 {
			return nil, fmt.Errorf("%w: missing column %q", ErrFormat, c)
		}
		idx[c] = i
	}
	return idx, nil
}
