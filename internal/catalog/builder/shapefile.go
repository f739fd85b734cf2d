package builder

import (
	"sort"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/choosepower/tdsp-resolver/internal/model"
)

// ServiceArea is one territory's service footprint as a multipolygon.
type ServiceArea struct {
	TerritoryID string
	Geometry    *geom.MultiPolygon
}

// LoadServiceAreas reads a territory footprint shapefile. The attribute named
// by idField carries the territory id for each polygon; polygons sharing an id
// are merged into one ServiceArea.
func LoadServiceAreas(shpPath, idField string) ([]ServiceArea, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "builder: open service area shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	idx, err := fieldIndex(reader, idField)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*geom.MultiPolygon)
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil {
			skipped++
			continue
		}
		id := attribute(reader, idx)
		if id == "" {
			skipped++
			continue
		}
		mp := polygonToMultiPolygon(poly)
		if mp == nil {
			skipped++
			continue
		}
		if existing, ok := byID[id]; ok {
			for i := 0; i < mp.NumPolygons(); i++ {
				if err := existing.Push(mp.Polygon(i)); err != nil {
					zap.L().Debug("builder: skipping unmergeable polygon part",
						zap.String("territory", id), zap.Error(err))
				}
			}
		} else {
			byID[id] = mp
		}
	}
	if skipped > 0 {
		zap.L().Debug("builder: skipped service area records", zap.Int("skipped", skipped))
	}

	areas := make([]ServiceArea, 0, len(byID))
	for id, mp := range byID {
		areas = append(areas, ServiceArea{TerritoryID: id, Geometry: mp})
	}
	sort.Slice(areas, func(i, j int) bool { return areas[i].TerritoryID < areas[j].TerritoryID })
	if len(areas) == 0 {
		return nil, eris.Errorf("builder: shapefile %s yielded no service areas", shpPath)
	}
	return areas, nil
}

// AssignZips reads a ZCTA boundary shapefile and assigns each ZCTA to the
// territories whose footprint contains it. The zipField attribute carries the
// five-digit code (ZCTA5CE20 in Census ZCTA files). A ZCTA whose sample
// points land in exactly one territory becomes a direct entry; two or more
// territories make it a split entry; zero means it is outside every footprint
// and is skipped.
func AssignZips(shpPath, zipField string, areas []ServiceArea) ([]model.ZipEntry, []model.SplitZipEntry, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "builder: open zcta shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	idx, err := fieldIndex(reader, zipField)
	if err != nil {
		return nil, nil, err
	}

	var zips []model.ZipEntry
	var splits []model.SplitZipEntry
	var skipped, outside int

	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil {
			skipped++
			continue
		}
		zip := attribute(reader, idx)
		if len(zip) != 5 {
			skipped++
			continue
		}
		mp := polygonToMultiPolygon(poly)
		if mp == nil {
			skipped++
			continue
		}

		candidates := containingTerritories(mp, areas)
		switch len(candidates) {
		case 0:
			outside++
		case 1:
			zips = append(zips, model.ZipEntry{Zip: zip, TerritoryID: candidates[0]})
		default:
			splits = append(splits, model.SplitZipEntry{Zip: zip, CandidateTerritoryIDs: candidates})
		}
	}

	if skipped > 0 || outside > 0 {
		zap.L().Debug("builder: zcta assignment summary",
			zap.Int("direct", len(zips)),
			zap.Int("split", len(splits)),
			zap.Int("outside", outside),
			zap.Int("skipped", skipped),
		)
	}

	sort.Slice(zips, func(i, j int) bool { return zips[i].Zip < zips[j].Zip })
	sort.Slice(splits, func(i, j int) bool { return splits[i].Zip < splits[j].Zip })
	return zips, splits, nil
}

// containingTerritories returns the ids of territories whose footprint
// contains at least one sample point of the ZCTA, sorted for determinism.
func containingTerritories(zcta *geom.MultiPolygon, areas []ServiceArea) []string {
	samples := samplePoints(zcta)
	var ids []string
	for _, area := range areas {
		for _, p := range samples {
			if multiPolygonContains(area.Geometry, p) {
				ids = append(ids, area.TerritoryID)
				break
			}
		}
	}
	sort.Strings(ids)
	return ids
}

// samplePoints picks the vertex centroid of each polygon's outer ring plus a
// spread of ring vertices. The centroid of a convex-ish ZCTA sits inside it;
// the vertices catch the case where a ZCTA straddles a territory boundary.
func samplePoints(mp *geom.MultiPolygon) []geom.Coord {
	const perRing = 8
	var points []geom.Coord
	for i := 0; i < mp.NumPolygons(); i++ {
		poly := mp.Polygon(i)
		if poly.NumLinearRings() == 0 {
			continue
		}
		ring := poly.LinearRing(0)
		flat := ring.FlatCoords()
		n := len(flat) / 2
		if n == 0 {
			continue
		}

		var sumX, sumY float64
		for j := 0; j < n; j++ {
			sumX += flat[j*2]
			sumY += flat[j*2+1]
		}
		points = append(points, geom.Coord{sumX / float64(n), sumY / float64(n)})

		step := n / perRing
		if step == 0 {
			step = 1
		}
		for j := 0; j < n; j += step {
			points = append(points, geom.Coord{flat[j*2], flat[j*2+1]})
		}
	}
	return points
}

// multiPolygonContains tests point containment against outer rings only.
// Service footprints have no meaningful holes at ZCTA resolution.
func multiPolygonContains(mp *geom.MultiPolygon, p geom.Coord) bool {
	for i := 0; i < mp.NumPolygons(); i++ {
		poly := mp.Polygon(i)
		if poly.NumLinearRings() == 0 {
			continue
		}
		if xy.IsPointInRing(geom.XY, p, poly.LinearRing(0).FlatCoords()) {
			return true
		}
	}
	return false
}

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("builder: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("builder: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

func fieldIndex(reader *shp.Reader, name string) (int, error) {
	fields := reader.Fields()
	for i, f := range fields {
		fn := strings.TrimRight(f.String(), "\x00")
		if strings.EqualFold(fn, name) {
			return i, nil
		}
	}
	return 0, eris.Errorf("builder: shapefile has no %q field", name)
}

func attribute(reader *shp.Reader, idx int) string {
	return strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
}
