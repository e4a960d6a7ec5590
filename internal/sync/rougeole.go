package sync

import (
	"math"
	"sort"

	"github.com/epiveille/epiveille/internal/models"
)

// BuildRougeoleRows converts measles observations into upsert-ready rows:
// one row per (year, department) plus one synthetic national row per year.
// The national notification rate is population-weighted over departments
// that report both a case count and a population; it is nil when no
// department qualifies.
func BuildRougeoleRows(observations []models.RougeoleObservation) []models.RougeoleIndicator {
	rows := make([]models.RougeoleIndicator, 0, len(observations))

	type yearTotals struct {
		cases      float64
		population float64
	}
	totals := make(map[string]*yearTotals)

	for _, obs := range observations {
		var cases *int
		if obs.Cases != nil {
			rounded := int(math.Round(*obs.Cases))
			cases = &rounded
		}
		rows = append(rows, models.RougeoleIndicator{
			Year:             obs.Year,
			Department:       obs.Department,
			NotificationRate: obs.Rate,
			Cases:            cases,
		})

		if obs.Cases == nil || obs.Population == nil {
			continue
		}
		t, ok := totals[obs.Year]
		if !ok {
			t = &yearTotals{}
			totals[obs.Year] = t
		}
		t.cases += *obs.Cases
		t.population += *obs.Population
	}

	years := make([]string, 0, len(totals))
	for year := range totals {
		years = append(years, year)
	}
	sort.Strings(years)

	for _, year := range years {
		t := totals[year]

		var rate *float64
		if t.population > 0 {
			r := t.cases / t.population * 100000
			rate = &r
		}
		cases := int(math.Round(t.cases))

		rows = append(rows, models.RougeoleIndicator{
			Year:             year,
			Department:       models.NationalDepartment,
			NotificationRate: rate,
			Cases:            &cases,
		})
	}

	return rows
}
