package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/choosepower/tdsp-resolver/internal/model"
)

func TestSeedLoads(t *testing.T) {
	cat, err := New(Seed())
	require.NoError(t, err)

	assert.Len(t, cat.Territories(), 5)
	assert.Greater(t, cat.ZipCount(), 20)
	assert.Equal(t, 3, cat.SplitZipCount())

	oncor, ok := cat.Territory(OncorID)
	require.True(t, ok)
	assert.Equal(t, "Oncor Electric Delivery", oncor.Name)
}

func TestNewRejectsZipInBothIndexes(t *testing.T) {
	data := Seed()
	// 75001 is a seeded split ZIP; adding it to the direct index must fail.
	data.Zips = append(data.Zips, model.ZipEntry{Zip: "75001", TerritoryID: OncorID})

	_, err := New(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both direct index and split registry")
}

func TestNewRejectsExcludedCityWithTerritory(t *testing.T) {
	data := Seed()
	data.Cities = append(data.Cities, model.CityMapping{
		CitySlug:    "broken-tx",
		CityName:    "Broken",
		TerritoryID: OncorID,
		Excluded:    true,
	})

	_, err := New(data)
	require.Error(t, err)
}

func TestNewRejectsUnknownTerritoryReferences(t *testing.T) {
	data := Seed()
	data.Zips = append(data.Zips, model.ZipEntry{Zip: "75998", TerritoryID: "bogus"})

	_, err := New(data)
	require.Error(t, err)
}

func TestNewRejectsSingleCandidateSplit(t *testing.T) {
	data := Seed()
	data.SplitZips = append(data.SplitZips, model.SplitZipEntry{
		Zip:                   "76999",
		CandidateTerritoryIDs: []string{OncorID},
	})

	_, err := New(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fewer than 2 candidates")
}

func TestResolveDirect(t *testing.T) {
	cat, err := New(Seed())
	require.NoError(t, err)

	hit := cat.ResolveDirect("75201")
	assert.Equal(t, DirectHit, hit.Kind)
	assert.Equal(t, OncorID, hit.Entry.TerritoryID)
	assert.Equal(t, "dallas-tx", hit.Entry.CitySlug)

	split := cat.ResolveDirect("75001")
	assert.Equal(t, DirectSplit, split.Kind)
	assert.ElementsMatch(t, []string{OncorID, TNMPID}, split.Split.CandidateTerritoryIDs)

	miss := cat.ResolveDirect("79999")
	assert.Equal(t, DirectMiss, miss.Kind)
}

func TestMunicipalLookups(t *testing.T) {
	cat, err := New(Seed())
	require.NoError(t, err)

	m, ok := cat.Municipal("78701", "")
	require.True(t, ok)
	assert.Equal(t, "Austin Energy", m.Utility)

	m, ok = cat.Municipal("", "san-antonio-tx")
	require.True(t, ok)
	assert.Equal(t, "CPS Energy", m.Utility)

	_, ok = cat.Municipal("75201", "dallas-tx")
	assert.False(t, ok)
}

func TestTerritoriesByIDSkipsUnknown(t *testing.T) {
	cat, err := New(Seed())
	require.NoError(t, err)

	got := cat.TerritoriesByID([]string{OncorID, "bogus", TNMPID})
	require.Len(t, got, 2)
	assert.Equal(t, OncorID, got[0].ID)
	assert.Equal(t, TNMPID, got[1].ID)
}
