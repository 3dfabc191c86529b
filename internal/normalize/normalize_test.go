package normalize

import (
	"encoding/json"
	"testing"

	"postcode-api/internal/postcode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sydney = `{"post code":"2000","country":"Australia","country abbreviation":"AU","places":[
 {"place name":"Sydney","longitude":"151.2099","state":"New South Wales","state abbreviation":"NSW","latitude":"-33.8697"},
 {"place name":"Barangaroo","longitude":"151.2","state":"New South Wales","state abbreviation":"NSW","latitude":"-33.86"}]}`

// TestNormalizeRoundTrip 测试归一化后字段与原始响应一致，国家码取自查询
func TestNormalizeRoundTrip(t *testing.T) {
	r, err := Normalize([]byte(sydney), "AU")
	require.NoError(t, err)

	var raw struct {
		PostCode string                `json:"post code"`
		Country  string                `json:"country"`
		Places   []postcode.PlaceEntry `json:"places"`
	}
	require.NoError(t, json.Unmarshal([]byte(sydney), &raw))

	assert.Equal(t, raw.PostCode, r.PostCode)
	assert.Equal(t, raw.Country, r.Country)
	assert.Equal(t, raw.Places, r.Places)
	assert.Equal(t, postcode.CountryCode("AU"), r.CountryCode)
	assert.Equal(t, "AU-2000", r.Key())
}

// TestNormalizeCountryCodeFromQuery 测试响应体中的国家缩写不影响 CountryCode
func TestNormalizeCountryCodeFromQuery(t *testing.T) {
	body := `{"post code":"1000","country":"Somewhere","country abbreviation":"XX","places":[{"place name":"A"}]}`
	r, err := Normalize([]byte(body), "DE")
	require.NoError(t, err)
	assert.Equal(t, postcode.CountryCode("DE"), r.CountryCode)
	assert.Equal(t, "XX", r.CountryAbbreviation)
}

func TestNormalizeDefensive(t *testing.T) {
	t.Run("NumbersAsStrings", func(t *testing.T) {
		body := `{"post code":90210,"places":[{"place name":"Beverly Hills","latitude":34.09,"longitude":-118.4}]}`
		r, err := Normalize([]byte(body), "US")
		require.NoError(t, err)
		assert.Equal(t, "90210", r.PostCode)
		assert.Equal(t, "34.09", r.Places[0].Latitude)
		assert.Equal(t, "United States", r.Country)
	})

	t.Run("SkipsNonObjectPlaces", func(t *testing.T) {
		body := `{"post code":"1","places":["x",null,{"place name":"Only"}]}`
		r, err := Normalize([]byte(body), "FR")
		require.NoError(t, err)
		require.Len(t, r.Places, 1)
		assert.Equal(t, "Only", r.Places[0].Name)
	})

	t.Run("EmptyPlaces", func(t *testing.T) {
		_, err := Normalize([]byte(`{"post code":"1","places":[]}`), "FR")
		assert.ErrorIs(t, err, ErrNoPlaces)
		_, err = Normalize([]byte(`{}`), "FR")
		assert.ErrorIs(t, err, ErrNoPlaces)
	})

	t.Run("Malformed", func(t *testing.T) {
		for _, body := range []string{`not json`, `[1,2]`, `{"places":"nope"}`, ``} {
			_, err := Normalize([]byte(body), "IT")
			assert.ErrorIs(t, err, ErrMalformed, body)
		}
	})
}
