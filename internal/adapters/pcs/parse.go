package pcs

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/sborms/cyclingsimilarity.com/internal/domain/model"
)

var (
	stageHref = regexp.MustCompile(`^/?(race/[^/]+/\d{4}/(?:stage-\d+[a-z]?|prologue))(?:/.*)?$`)
	birthText = regexp.MustCompile(`(\d{1,2})(?:st|nd|rd|th)?\s+([A-Z][a-z]+)\s+(\d{4})`)
)

var dateLayouts = []string{"2006-01-02", "2 January 2006", "02 January 2006"}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// parseRaceOverview reads dates and stage links from an overview page.
func parseRaceOverview(doc *goquery.Document, slug string) (RaceMetadata, error) {
	meta := RaceMetadata{Slug: slug}

	doc.Find("ul.infolist li").Each(func(_ int, li *goquery.Selection) {
		label, value, ok := strings.Cut(cleanText(li.Text()), ":")
		if !ok {
			return
		}
		d, ok := parseDate(value)
		if !ok {
			return
		}
		switch strings.ToLower(strings.TrimSpace(label)) {
		case "startdate", "date":
			meta.StartDate = d
		case "enddate":
			meta.EndDate = d
		}
	})
	if meta.EndDate.IsZero() {
		meta.EndDate = meta.StartDate
	}
	if meta.EndDate.IsZero() {
		return RaceMetadata{}, fmt.Errorf("%w: %s: no race dates", ErrParse, slug)
	}

	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		m := stageHref.FindStringSubmatch(href)
		if m == nil || !strings.HasPrefix(m[1], slug+"/") {
			return
		}
		if _, dup := seen[m[1]]; dup {
			return
		}
		seen[m[1]] = struct{}{}
		meta.StageURLs = append(meta.StageURLs, m[1])
	})
	meta.OneDay = len(meta.StageURLs) == 0
	return meta, nil
}

// parseResults reads the result table of a race or stage page. With gc set
// and a GC tab present, the GC table is read instead of the stage table.
func parseResults(doc *goquery.Document, gc bool) ([]Placing, error) {
	containers := doc.Find("div.result-cont")
	if containers.Length() == 0 {
		return nil, fmt.Errorf("%w: no result table", ErrParse)
	}
	target := containers.First()
	if gc {
		doc.Find("ul.restabs li a").EachWithBreak(func(i int, a *goquery.Selection) bool {
			if strings.EqualFold(cleanText(a.Text()), "GC") && i < containers.Length() {
				target = containers.Eq(i)
				return false
			}
			return true
		})
	}

	table := target.Find("table.results")
	if table.Length() == 0 {
		return nil, fmt.Errorf("%w: no result table", ErrParse)
	}

	var out []Placing
	table.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		a := tr.Find(`a[href*="rider/"]`).First()
		if a.Length() == 0 {
			return
		}
		o, err := model.ParseOutcome(cleanText(tr.Find("td").First().Text()))
		if err != nil || o.Kind() == model.DidNotParticipate {
			return
		}
		href, _ := a.Attr("href")
		_, riderSlug, _ := strings.Cut(href, "rider/")
		out = append(out, Placing{
			Rider:     cleanText(a.Text()),
			RiderSlug: strings.Trim(riderSlug, "/"),
			Outcome:   o,
		})
	})
	return out, nil
}

// parseRiderProfile reads nationality and birth date from a rider page.
func parseRiderProfile(doc *goquery.Document) (Profile, error) {
	var p Profile
	info := doc.Find("div.rdr-info-cont")

	if class, ok := info.Find("span.flag").First().Attr("class"); ok {
		for _, c := range strings.Fields(class) {
			if c != "flag" && len(c) == 2 {
				p.Nationality = strings.ToUpper(c)
				break
			}
		}
	}

	text := cleanText(info.Text())
	if _, after, ok := strings.Cut(text, "Date of birth:"); ok {
		if m := birthText.FindStringSubmatch(after); m != nil {
			if d, ok := parseDate(m[1] + " " + m[2] + " " + m[3]); ok {
				p.BirthDate = d
			}
		}
	}

	if p.Nationality == "" && p.BirthDate.IsZero() {
		return Profile{}, fmt.Errorf("%w: no rider info", ErrParse)
	}
	return p, nil
}
