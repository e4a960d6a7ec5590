package odisse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRougeoleFetch(t *testing.T) {
	t.Run("typed observations", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[
				{"annee": "2023", "dep": "01", "libgeo": "Ain", "tx": 1.5, "rou": 10, "population": 100000},
				{"annee": 2023, "dep": "02", "libgeo": "Aisne", "tx": null, "rou": 20, "population": 200000},
				{"annee": "2023", "dep": 3, "libgeo": "Allier"},
				{"dep": "04", "libgeo": "Alpes-de-Haute-Provence"}
			]`))
		}))
		defer server.Close()

		client := NewRougeoleClient(http.DefaultClient, WithRougeoleURL(server.URL))
		obs, err := client.Fetch(context.Background())

		require.NoError(t, err)
		require.Len(t, obs, 2, "rows missing year or department are dropped")

		assert.Equal(t, "2023", obs[0].Year)
		assert.Equal(t, "01", obs[0].Department)
		assert.Equal(t, "Ain", obs[0].Name)
		require.NotNil(t, obs[0].Rate)
		assert.Equal(t, 1.5, *obs[0].Rate)
		require.NotNil(t, obs[0].Cases)
		assert.Equal(t, 10.0, *obs[0].Cases)

		// Numeric year is coerced to its string form.
		assert.Equal(t, "2023", obs[1].Year)
		assert.Nil(t, obs[1].Rate)
	})

	t.Run("non-success status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := NewRougeoleClient(http.DefaultClient, WithRougeoleURL(server.URL))
		_, err := client.Fetch(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "rougeole API error")
	})

	t.Run("malformed body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("{not an array"))
		}))
		defer server.Close()

		client := NewRougeoleClient(http.DefaultClient, WithRougeoleURL(server.URL))
		_, err := client.Fetch(context.Background())
		require.Error(t, err)
	})
}
