package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/choosepower/tdsp-resolver/internal/model"
)

func testDefinitions() *Definitions {
	return &Definitions{
		Version: "test-1",
		Territories: []TerritoryDef{
			{
				ID:       "1039940674000",
				Name:     "Oncor Electric Delivery",
				Zone:     "north",
				Cities:   []string{"Dallas", "Fort Worth", "Plano", "Irving", "Frisco"},
				Keywords: []string{"dallas", "worth"},
			},
			{
				ID:       "957877905",
				Name:     "CenterPoint Energy",
				Zone:     "coast",
				Cities:   []string{"Houston", "Katy"},
				Keywords: []string{"houston", "bayou"},
			},
		},
		Municipal: map[string]string{
			"Austin":      "Austin Energy",
			"San Antonio": "CPS Energy",
		},
		Zips: map[string]string{
			"75201": "1039940674000",
			"77001": "957877905",
		},
		SplitZips: map[string][]string{
			"75001": {"1039940674000", "957877905"},
		},
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Dallas", "dallas-tx"},
		{"Fort Worth", "fort-worth-tx"},
		{"  Sugar   Land  ", "sugar-land-tx"},
		{"O'Brien", "obrien-tx"},
		{"Wichita Falls", "wichita-falls-tx"},
		{"dallas-tx", "dallas-tx"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), "Slugify(%q)", tt.in)
	}
}

func TestFormatCityName(t *testing.T) {
	assert.Equal(t, "Dallas", FormatCityName("dallas-tx"))
	assert.Equal(t, "Sugar Land", FormatCityName("sugar-land-tx"))
	assert.Equal(t, "Fort Worth", FormatCityName("fort-worth-tx"))
}

func TestBuildAssignsKnownCities(t *testing.T) {
	b := New(testDefinitions())

	zips, splits := MergeZipAssignments(testDefinitions(), nil, nil)
	data, err := b.Build([]CityInput{
		{Name: "Dallas", Population: 1300000},
		{Name: "Houston", Population: 2300000},
		{Name: "Katy", Population: 21000},
	}, zips, splits)
	require.NoError(t, err)

	byCities := indexCities(data.Cities)
	dallas := byCities["dallas-tx"]
	assert.Equal(t, "1039940674000", dallas.TerritoryID)
	assert.Equal(t, model.TierMajorMetro, dallas.Tier)
	assert.Equal(t, 1.0, dallas.Priority)
	assert.False(t, dallas.Heuristic)

	katy := byCities["katy-tx"]
	assert.Equal(t, "957877905", katy.TerritoryID)
	assert.Equal(t, model.TierStandard, katy.Tier)
}

func TestBuildExcludesMunicipalCities(t *testing.T) {
	b := New(testDefinitions())

	zips, splits := MergeZipAssignments(testDefinitions(), nil, nil)
	data, err := b.Build([]CityInput{
		{Name: "Austin", Population: 970000},
		{Name: "Dallas", Population: 1300000},
	}, zips, splits)
	require.NoError(t, err)

	austin := indexCities(data.Cities)["austin-tx"]
	assert.True(t, austin.Excluded)
	assert.Empty(t, austin.TerritoryID)
}

func TestBuildKeywordHeuristic(t *testing.T) {
	b := New(testDefinitions())

	zips, splits := MergeZipAssignments(testDefinitions(), nil, nil)
	// "Houston Heights" is not a known city, but contains the keyword.
	data, err := b.Build([]CityInput{
		{Name: "Dallas"},
		{Name: "Houston Heights", Population: 5000},
	}, zips, splits)
	require.NoError(t, err)

	heights := indexCities(data.Cities)["houston-heights-tx"]
	assert.Equal(t, "957877905", heights.TerritoryID)
	assert.True(t, heights.Heuristic)
}

func TestBuildAlphabeticFallbackIsFlagged(t *testing.T) {
	b := New(testDefinitions())

	zips, splits := MergeZipAssignments(testDefinitions(), nil, nil)
	data, err := b.Build([]CityInput{
		{Name: "Dallas"},
		{Name: "Zavalla", Population: 700},
	}, zips, splits)
	require.NoError(t, err)

	zavalla := indexCities(data.Cities)["zavalla-tx"]
	assert.True(t, zavalla.Heuristic)
	assert.NotEmpty(t, zavalla.TerritoryID)
}

func TestBuildExplicitRosterAssignmentWins(t *testing.T) {
	b := New(testDefinitions())

	zips, splits := MergeZipAssignments(testDefinitions(), nil, nil)
	// Roster pins Katy to Oncor even though definitions say CenterPoint.
	data, err := b.Build([]CityInput{
		{Name: "Katy", Territory: "1039940674000"},
	}, zips, splits)
	require.NoError(t, err)

	katy := indexCities(data.Cities)["katy-tx"]
	assert.Equal(t, "1039940674000", katy.TerritoryID)
	assert.False(t, katy.Heuristic)
}

func TestBuildSkipsDuplicatesAndEmptyNames(t *testing.T) {
	b := New(testDefinitions())

	zips, splits := MergeZipAssignments(testDefinitions(), nil, nil)
	data, err := b.Build([]CityInput{
		{Name: "Dallas"},
		{Name: "dallas"},
		{Name: "   "},
	}, zips, splits)
	require.NoError(t, err)
	assert.Len(t, data.Cities, 1)
}

func TestTierForPopulation(t *testing.T) {
	assert.Equal(t, model.TierMajorMetro, tierForPopulation(500000))
	assert.Equal(t, model.TierLargeCity, tierForPopulation(100000))
	assert.Equal(t, model.TierStandard, tierForPopulation(99999))
	assert.Equal(t, model.TierStandard, tierForPopulation(0))
}

func TestMergeZipAssignmentsSplitWins(t *testing.T) {
	defs := testDefinitions()

	derived := []model.ZipEntry{
		{Zip: "75001", TerritoryID: "1039940674000"}, // also a defs split ZIP
		{Zip: "76102", TerritoryID: "1039940674000"},
	}
	zips, splits := MergeZipAssignments(defs, derived, nil)

	for _, z := range zips {
		assert.NotEqual(t, "75001", z.Zip, "split ZIP leaked into direct index")
	}
	require.Len(t, splits, 1)
	assert.Equal(t, "75001", splits[0].Zip)

	byZip := make(map[string]model.ZipEntry)
	for _, z := range zips {
		byZip[z.Zip] = z
	}
	assert.Contains(t, byZip, "76102")
	assert.Contains(t, byZip, "75201")
	assert.Contains(t, byZip, "77001")
}

func indexCities(cities []model.CityMapping) map[string]model.CityMapping {
	out := make(map[string]model.CityMapping, len(cities))
	for _, c := range cities {
		out[c.CitySlug] = c
	}
	return out
}
