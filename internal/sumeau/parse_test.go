package sumeau

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epiveille/epiveille/internal/models"
)

func findIndicator(t *testing.T, rows []models.WastewaterIndicator, week, station string) models.WastewaterIndicator {
	t.Helper()
	for _, row := range rows {
		if row.Week == week && row.StationID == station {
			return row
		}
	}
	t.Fatalf("no indicator for week=%s station=%s", week, station)
	return models.WastewaterIndicator{}
}

func TestParseIndicatorsCSV(t *testing.T) {
	t.Run("wide to long pivot", func(t *testing.T) {
		csvText := "semaine;StationA;StationB\n2024-S01;10,5;NA\n2024-S02;11;12\n"
		rows, err := ParseIndicatorsCSV(strings.NewReader(csvText))

		require.NoError(t, err)
		require.Len(t, rows, 4)

		a1 := findIndicator(t, rows, "2024-W01", "StationA")
		require.NotNil(t, a1.Value)
		assert.Equal(t, 10.5, *a1.Value)
		assert.Equal(t, a1.Value, a1.SmoothedValue)

		b1 := findIndicator(t, rows, "2024-W01", "StationB")
		assert.Nil(t, b1.Value)
		assert.Nil(t, b1.SmoothedValue)

		b2 := findIndicator(t, rows, "2024-W02", "StationB")
		require.NotNil(t, b2.Value)
		assert.Equal(t, 12.0, *b2.Value)
	})

	t.Run("blank week rows are dropped", func(t *testing.T) {
		csvText := "semaine;StationA\n;5\n2024-S02;6\n"
		rows, err := ParseIndicatorsCSV(strings.NewReader(csvText))

		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "2024-W02", rows[0].Week)
	})

	t.Run("national aggregate column", func(t *testing.T) {
		csvText := "semaine;National_54\n2024-S10;55,2\n"
		rows, err := ParseIndicatorsCSV(strings.NewReader(csvText))

		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, models.NationalStationID, rows[0].StationID)
	})

	t.Run("missing semaine column", func(t *testing.T) {
		_, err := ParseIndicatorsCSV(strings.NewReader("a;b\n1;2\n"))
		require.Error(t, err)
	})

	t.Run("short rows parse as absent values", func(t *testing.T) {
		csvText := "semaine;StationA;StationB\n2024-S01;7\n"
		rows, err := ParseIndicatorsCSV(strings.NewReader(csvText))

		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Nil(t, findIndicator(t, rows, "2024-W01", "StationB").Value)
	})
}

func TestParseIndicatorsJSON(t *testing.T) {
	t.Run("fields records", func(t *testing.T) {
		data := []byte(`[
			{"fields": {"semaine": "2024-S01", "StationA": 10.5, "StationB": "not a number", "date_complet": "2024-01-01"}},
			{"fields": {"StationA": 3}}
		]`)
		rows, err := ParseIndicatorsJSON(data)

		require.NoError(t, err)
		require.Len(t, rows, 2)

		a := findIndicator(t, rows, "2024-W01", "StationA")
		require.NotNil(t, a.Value)
		assert.Equal(t, 10.5, *a.Value)

		b := findIndicator(t, rows, "2024-W01", "StationB")
		assert.Nil(t, b.Value)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		_, err := ParseIndicatorsJSON([]byte("{not json"))
		require.Error(t, err)
	})
}

func TestParseStationsCSV(t *testing.T) {
	csvText := "nom;sandre;commune;population;longitude;latitude\n" +
		"Marseille;\"060931053001\";Marseille;870000;5,36978;43,296482\n" +
		";12345;Nowhere;1;0;0\n" +
		"SansSandre;;Nulle;2;0;0\n" +
		"Lille;059350012002;Lille;abc;3,057256;50,62925\n"

	stations, err := ParseStationsCSV(strings.NewReader(csvText))
	require.NoError(t, err)
	require.Len(t, stations, 2)

	marseille := stations[0]
	assert.Equal(t, "060931053001", marseille.SandreID)
	assert.Equal(t, "Marseille", marseille.Name)
	assert.Equal(t, 870000, marseille.Population)
	assert.Equal(t, 43.296482, marseille.Lat)
	assert.Equal(t, 5.36978, marseille.Lng)

	// Unparseable population defaults to zero.
	lille := stations[1]
	assert.Equal(t, 0, lille.Population)
	assert.Equal(t, 50.62925, lille.Lat)
}

func TestParseStationsJSON(t *testing.T) {
	t.Run("centroid takes precedence", func(t *testing.T) {
		data := []byte(`[{
			"fields": {
				"nom": "Paris Seine Aval",
				"sandre": "'030944058001'",
				"commune": "Achères",
				"population": 6000000,
				"latitude": "1,0",
				"longitude": "2,0",
				"centroide": [48.96, 2.05]
			}
		}]`)
		stations, err := ParseStationsJSON(data)

		require.NoError(t, err)
		require.Len(t, stations, 1)
		assert.Equal(t, "030944058001", stations[0].SandreID)
		assert.Equal(t, 48.96, stations[0].Lat)
		assert.Equal(t, 2.05, stations[0].Lng)
		assert.Equal(t, 6000000, stations[0].Population)
	})

	t.Run("french locale coordinates without centroid", func(t *testing.T) {
		data := []byte(`[{
			"fields": {
				"nom": "Nice",
				"sandre": "060088119001",
				"commune": "Nice",
				"population": 600000,
				"latitude": "43,66",
				"longitude": "7,19"
			}
		}]`)
		stations, err := ParseStationsJSON(data)

		require.NoError(t, err)
		require.Len(t, stations, 1)
		assert.Equal(t, 43.66, stations[0].Lat)
		assert.Equal(t, 7.19, stations[0].Lng)
	})

	t.Run("missing name or sandre dropped", func(t *testing.T) {
		data := []byte(`[
			{"fields": {"nom": "", "sandre": "123"}},
			{"fields": {"nom": "X", "sandre": ""}}
		]`)
		stations, err := ParseStationsJSON(data)

		require.NoError(t, err)
		assert.Empty(t, stations)
	})
}
