package sumeau

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/epiveille/epiveille/internal/models"
	"github.com/epiveille/epiveille/internal/parse"
)

// weekColumn is the only metadata column of the wide-format indicators CSV;
// every other column is a station series.
const weekColumn = "semaine"

// ParseIndicatorsCSV pivots the wide-format indicators CSV (one column per
// station, one row per week) into long-format indicator rows. The feed only
// publishes smoothed values, so Value and SmoothedValue carry the same
// number. Rows with a blank week are dropped.
func ParseIndicatorsCSV(r io.Reader) ([]models.WastewaterIndicator, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read indicators header: %w", err)
	}

	weekIdx := -1
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), weekColumn) {
			weekIdx = i
			break
		}
	}
	if weekIdx == -1 {
		return nil, fmt.Errorf("indicators CSV has no %q column", weekColumn)
	}

	indicators := make([]models.WastewaterIndicator, 0)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read indicators row: %w", err)
		}

		if weekIdx >= len(row) || strings.TrimSpace(row[weekIdx]) == "" {
			continue
		}
		week := parse.NormalizeWeek(strings.TrimSpace(row[weekIdx]))

		for i, col := range header {
			if i == weekIdx {
				continue
			}
			var raw string
			if i < len(row) {
				raw = row[i]
			}
			value := parse.FrenchNumber(raw)
			indicators = append(indicators, models.WastewaterIndicator{
				Week:          week,
				StationID:     strings.TrimSpace(col),
				Value:         value,
				SmoothedValue: value,
			})
		}
	}

	return indicators, nil
}

// odisseIndicatorRecord is one entry of the Odissé JSON fallback export:
// a "fields" object with the week plus one key per station.
type odisseIndicatorRecord struct {
	Fields map[string]any `json:"fields"`
}

// ParseIndicatorsJSON converts the Odissé JSON fallback into indicator
// rows. Only native JSON numbers are accepted as values; the date_complet
// field is metadata, not a station.
func ParseIndicatorsJSON(data []byte) ([]models.WastewaterIndicator, error) {
	var records []odisseIndicatorRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode indicators JSON: %w", err)
	}

	indicators := make([]models.WastewaterIndicator, 0)
	for _, record := range records {
		weekRaw, _ := record.Fields[weekColumn].(string)
		if weekRaw == "" {
			continue
		}
		week := parse.NormalizeWeek(weekRaw)

		for key, val := range record.Fields {
			if key == weekColumn || key == "date_complet" {
				continue
			}
			var value *float64
			if num, ok := val.(float64); ok {
				value = &num
			}
			indicators = append(indicators, models.WastewaterIndicator{
				Week:          week,
				StationID:     key,
				Value:         value,
				SmoothedValue: value,
			})
		}
	}

	return indicators, nil
}

// ParseStationsCSV reads station metadata from the semicolon CSV
// (nom;sandre;commune;population;longitude;latitude). Rows missing the
// name or SANDRE ID are dropped; coordinates use French-locale numbers.
func ParseStationsCSV(r io.Reader) ([]models.Station, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read stations header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.ToLower(strings.TrimSpace(col))] = i
	}

	field := func(row []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	stations := make([]models.Station, 0)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read stations row: %w", err)
		}

		name := strings.TrimSpace(field(row, "nom"))
		sandre := strings.TrimSpace(field(row, "sandre"))
		if name == "" || sandre == "" {
			continue
		}

		population, _ := strconv.Atoi(strings.TrimSpace(field(row, "population")))

		var lat, lng float64
		if v := parse.FrenchNumber(field(row, "latitude")); v != nil {
			lat = *v
		}
		if v := parse.FrenchNumber(field(row, "longitude")); v != nil {
			lng = *v
		}

		stations = append(stations, models.Station{
			SandreID:   parse.StripQuotes(sandre),
			Name:       name,
			Commune:    strings.TrimSpace(field(row, "commune")),
			Population: population,
			Lat:        lat,
			Lng:        lng,
		})
	}

	return stations, nil
}

// odisseStationRecord is one entry of the Odissé stations JSON export.
// Coordinates arrive either as a centroid pair of floats or as separate
// French-locale strings; the centroid wins when present.
type odisseStationRecord struct {
	Fields struct {
		Nom        string    `json:"nom"`
		Sandre     string    `json:"sandre"`
		Commune    string    `json:"commune"`
		Population int       `json:"population"`
		Latitude   string    `json:"latitude"`
		Longitude  string    `json:"longitude"`
		Centroide  []float64 `json:"centroide"`
	} `json:"fields"`
}

// ParseStationsJSON converts the Odissé stations fallback into station
// rows, applying the same drop rule as the CSV variant.
func ParseStationsJSON(data []byte) ([]models.Station, error) {
	var records []odisseStationRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode stations JSON: %w", err)
	}

	stations := make([]models.Station, 0, len(records))
	for _, record := range records {
		f := record.Fields
		if f.Nom == "" || f.Sandre == "" {
			continue
		}

		var lat, lng float64
		if len(f.Centroide) >= 2 {
			lat = f.Centroide[0]
			lng = f.Centroide[1]
		} else {
			if v := parse.FrenchNumber(f.Latitude); v != nil {
				lat = *v
			}
			if v := parse.FrenchNumber(f.Longitude); v != nil {
				lng = *v
			}
		}

		stations = append(stations, models.Station{
			SandreID:   parse.StripQuotes(strings.TrimSpace(f.Sandre)),
			Name:       strings.TrimSpace(f.Nom),
			Commune:    strings.TrimSpace(f.Commune),
			Population: f.Population,
			Lat:        lat,
			Lng:        lng,
		})
	}

	return stations, nil
}
