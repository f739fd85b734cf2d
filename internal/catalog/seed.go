package catalog

import (
	"time"

	"github.com/choosepower/tdsp-resolver/internal/model"
)

// Utility identifiers for the five Texas TDSPs, as required by pricing and
// ordering APIs.
const (
	OncorID       = "1039940674000"
	CenterPointID = "957877905"
	AEPCentralID  = "007924772"
	AEPNorthID    = "007923311"
	TNMPID        = "007929441"
)

// Seed returns the built-in reference catalog. It covers the major metros
// and a representative set of ZIPs; production deployments regenerate the
// full artifact with the catalog builder.
func Seed() Data {
	territories := []model.Territory{
		{
			ID:   OncorID,
			Name: "Oncor Electric Delivery",
			Zone: model.ZoneNorth,
			Counties:  []string{"Dallas", "Tarrant", "Collin", "Denton", "Ellis", "Rockwall", "Midland", "Ector"},
			CitySlugs: []string{"dallas-tx", "fort-worth-tx", "plano-tx", "irving-tx", "arlington-tx", "frisco-tx", "mckinney-tx", "waco-tx", "tyler-tx", "midland-tx", "odessa-tx", "richardson-tx", "carrollton-tx"},
		},
		{
			ID:   CenterPointID,
			Name: "CenterPoint Energy",
			Zone: model.ZoneCoast,
			Counties:  []string{"Harris", "Fort Bend", "Brazoria", "Galveston", "Montgomery"},
			CitySlugs: []string{"houston-tx", "pasadena-tx", "baytown-tx", "katy-tx", "sugar-land-tx", "pearland-tx", "spring-tx", "humble-tx"},
		},
		{
			ID:   AEPCentralID,
			Name: "AEP Texas Central",
			Zone: model.ZoneSouth,
			Counties:  []string{"Nueces", "Webb", "Cameron", "Hidalgo", "Victoria"},
			CitySlugs: []string{"corpus-christi-tx", "laredo-tx", "mcallen-tx", "harlingen-tx", "victoria-tx", "brownsville-tx"},
		},
		{
			ID:   AEPNorthID,
			Name: "AEP Texas North",
			Zone: model.ZoneWest,
			Counties:  []string{"Taylor", "Tom Green", "Brown"},
			CitySlugs: []string{"abilene-tx", "san-angelo-tx", "vernon-tx"},
		},
		{
			ID:   TNMPID,
			Name: "Texas-New Mexico Power",
			Zone: model.ZoneWest,
			Counties:  []string{"Galveston", "Brazoria", "Hood", "Parker"},
			CitySlugs: []string{"texas-city-tx", "league-city-tx", "dickinson-tx", "glen-rose-tx", "pecos-tx"},
		},
	}

	cities := []model.CityMapping{
		{CitySlug: "dallas-tx", CityName: "Dallas", TerritoryID: OncorID, Tier: model.TierMajorMetro, Priority: 1.0},
		{CitySlug: "fort-worth-tx", CityName: "Fort Worth", TerritoryID: OncorID, Tier: model.TierMajorMetro, Priority: 1.0},
		{CitySlug: "houston-tx", CityName: "Houston", TerritoryID: CenterPointID, Tier: model.TierMajorMetro, Priority: 1.0},
		{CitySlug: "plano-tx", CityName: "Plano", TerritoryID: OncorID, Tier: model.TierLargeCity, Priority: 0.7},
		{CitySlug: "irving-tx", CityName: "Irving", TerritoryID: OncorID, Tier: model.TierLargeCity, Priority: 0.7},
		{CitySlug: "arlington-tx", CityName: "Arlington", TerritoryID: OncorID, Tier: model.TierLargeCity, Priority: 0.7},
		{CitySlug: "frisco-tx", CityName: "Frisco", TerritoryID: OncorID, Tier: model.TierLargeCity, Priority: 0.7},
		{CitySlug: "waco-tx", CityName: "Waco", TerritoryID: OncorID, Tier: model.TierLargeCity, Priority: 0.7},
		{CitySlug: "tyler-tx", CityName: "Tyler", TerritoryID: OncorID, Tier: model.TierStandard, Priority: 0.4},
		{CitySlug: "pasadena-tx", CityName: "Pasadena", TerritoryID: CenterPointID, Tier: model.TierLargeCity, Priority: 0.7},
		{CitySlug: "baytown-tx", CityName: "Baytown", TerritoryID: CenterPointID, Tier: model.TierStandard, Priority: 0.4},
		{CitySlug: "katy-tx", CityName: "Katy", TerritoryID: CenterPointID, Tier: model.TierLargeCity, Priority: 0.7},
		{CitySlug: "sugar-land-tx", CityName: "Sugar Land", TerritoryID: CenterPointID, Tier: model.TierLargeCity, Priority: 0.7},
		{CitySlug: "corpus-christi-tx", CityName: "Corpus Christi", TerritoryID: AEPCentralID, Tier: model.TierLargeCity, Priority: 0.7},
		{CitySlug: "laredo-tx", CityName: "Laredo", TerritoryID: AEPCentralID, Tier: model.TierLargeCity, Priority: 0.7},
		{CitySlug: "mcallen-tx", CityName: "McAllen", TerritoryID: AEPCentralID, Tier: model.TierStandard, Priority: 0.4},
		{CitySlug: "abilene-tx", CityName: "Abilene", TerritoryID: AEPNorthID, Tier: model.TierLargeCity, Priority: 0.7},
		{CitySlug: "san-angelo-tx", CityName: "San Angelo", TerritoryID: AEPNorthID, Tier: model.TierStandard, Priority: 0.4},
		{CitySlug: "texas-city-tx", CityName: "Texas City", TerritoryID: TNMPID, Tier: model.TierStandard, Priority: 0.4},
		{CitySlug: "league-city-tx", CityName: "League City", TerritoryID: TNMPID, Tier: model.TierLargeCity, Priority: 0.7},
		{CitySlug: "addison-tx", CityName: "Addison", TerritoryID: OncorID, Tier: model.TierStandard, Priority: 0.4},
		{CitySlug: "austin-tx", CityName: "Austin", Tier: model.TierMajorMetro, Priority: 1.0, Excluded: true},
		{CitySlug: "san-antonio-tx", CityName: "San Antonio", Tier: model.TierMajorMetro, Priority: 1.0, Excluded: true},
	}

	zips := []model.ZipEntry{
		{Zip: "75201", TerritoryID: OncorID, CitySlug: "dallas-tx"},
		{Zip: "75202", TerritoryID: OncorID, CitySlug: "dallas-tx"},
		{Zip: "75204", TerritoryID: OncorID, CitySlug: "dallas-tx"},
		{Zip: "75214", TerritoryID: OncorID, CitySlug: "dallas-tx"},
		{Zip: "76102", TerritoryID: OncorID, CitySlug: "fort-worth-tx"},
		{Zip: "76104", TerritoryID: OncorID, CitySlug: "fort-worth-tx"},
		{Zip: "75023", TerritoryID: OncorID, CitySlug: "plano-tx"},
		{Zip: "75024", TerritoryID: OncorID, CitySlug: "plano-tx"},
		{Zip: "75060", TerritoryID: OncorID, CitySlug: "irving-tx"},
		{Zip: "76010", TerritoryID: OncorID, CitySlug: "arlington-tx"},
		{Zip: "75034", TerritoryID: OncorID, CitySlug: "frisco-tx"},
		{Zip: "76701", TerritoryID: OncorID, CitySlug: "waco-tx"},
		{Zip: "75701", TerritoryID: OncorID, CitySlug: "tyler-tx"},
		{Zip: "77001", TerritoryID: CenterPointID, CitySlug: "houston-tx"},
		{Zip: "77002", TerritoryID: CenterPointID, CitySlug: "houston-tx"},
		{Zip: "77005", TerritoryID: CenterPointID, CitySlug: "houston-tx"},
		{Zip: "77019", TerritoryID: CenterPointID, CitySlug: "houston-tx"},
		{Zip: "77056", TerritoryID: CenterPointID, CitySlug: "houston-tx"},
		{Zip: "77502", TerritoryID: CenterPointID, CitySlug: "pasadena-tx"},
		{Zip: "77520", TerritoryID: CenterPointID, CitySlug: "baytown-tx"},
		{Zip: "77494", TerritoryID: CenterPointID, CitySlug: "katy-tx"},
		{Zip: "77478", TerritoryID: CenterPointID, CitySlug: "sugar-land-tx"},
		{Zip: "78401", TerritoryID: AEPCentralID, CitySlug: "corpus-christi-tx"},
		{Zip: "78040", TerritoryID: AEPCentralID, CitySlug: "laredo-tx"},
		{Zip: "78501", TerritoryID: AEPCentralID, CitySlug: "mcallen-tx"},
		{Zip: "79601", TerritoryID: AEPNorthID, CitySlug: "abilene-tx"},
		{Zip: "76901", TerritoryID: AEPNorthID, CitySlug: "san-angelo-tx"},
		{Zip: "77590", TerritoryID: TNMPID, CitySlug: "texas-city-tx"},
		{Zip: "77573", TerritoryID: TNMPID, CitySlug: "league-city-tx"},
	}

	splitZips := []model.SplitZipEntry{
		// Addison sits on the Oncor/TNMP seam north of Dallas.
		{Zip: "75001", CandidateTerritoryIDs: []string{OncorID, TNMPID}, CitySlug: "addison-tx"},
		// Roanoke/Trophy Club corridor.
		{Zip: "76262", CandidateTerritoryIDs: []string{OncorID, TNMPID}},
		// Dickinson straddles TNMP and CenterPoint.
		{Zip: "77539", CandidateTerritoryIDs: []string{TNMPID, CenterPointID}, CitySlug: "dickinson-tx"},
	}

	municipal := []model.MunicipalEntry{
		{CitySlug: "austin-tx", Utility: "Austin Energy"},
		{CitySlug: "san-antonio-tx", Utility: "CPS Energy"},
		{Zip: "78701", CitySlug: "austin-tx", Utility: "Austin Energy"},
		{Zip: "78702", CitySlug: "austin-tx", Utility: "Austin Energy"},
		{Zip: "78704", CitySlug: "austin-tx", Utility: "Austin Energy"},
		{Zip: "78745", CitySlug: "austin-tx", Utility: "Austin Energy"},
		{Zip: "78201", CitySlug: "san-antonio-tx", Utility: "CPS Energy"},
		{Zip: "78205", CitySlug: "san-antonio-tx", Utility: "CPS Energy"},
	}

	return Data{
		Version:     "seed-1",
		BuiltAt:     time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		Territories: territories,
		Cities:      cities,
		Zips:        zips,
		SplitZips:   splitZips,
		Municipal:   municipal,
	}
}
