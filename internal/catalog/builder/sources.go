package builder

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
)

// ParseCityCSV reads a city roster from CSV. Expected columns are
// name, population, territory_id; population and territory_id are optional.
// A header row is detected and skipped. Malformed rows are skipped with a
// warning rather than failing the whole build.
func ParseCityCSV(r io.Reader) ([]CityInput, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var cities []CityInput
	line := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			zap.L().Warn("roster: skipping malformed csv row", zap.Int("line", line+1), zap.Error(err))
			line++
			continue
		}
		line++

		if len(record) == 0 || strings.TrimSpace(record[0]) == "" {
			continue
		}
		if line == 1 && isHeaderRow(record) {
			continue
		}

		city := CityInput{Name: strings.TrimSpace(record[0])}
		if len(record) > 1 && strings.TrimSpace(record[1]) != "" {
			pop, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(record[1]), ",", ""))
			if err != nil {
				zap.L().Warn("roster: bad population, defaulting to zero",
					zap.Int("line", line), zap.String("city", city.Name), zap.String("value", record[1]))
			} else {
				city.Population = pop
			}
		}
		if len(record) > 2 {
			city.Territory = strings.TrimSpace(record[2])
		}
		cities = append(cities, city)
	}

	if len(cities) == 0 {
		return nil, eris.New("roster: no usable rows")
	}
	return cities, nil
}

// ParseCityCSVFile reads a city roster from a CSV file on disk.
func ParseCityCSVFile(path string) ([]CityInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "roster: open %s", path)
	}
	defer f.Close() //nolint:errcheck
	return ParseCityCSV(f)
}

// ParseCityXLSX reads a city roster from the first sheet of an XLSX
// workbook, with the same column layout as the CSV form.
func ParseCityXLSX(path string) ([]CityInput, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "roster: open workbook %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("roster: workbook %s has no sheets", path)
	}

	sheet := f.Sheets[0]
	var cities []CityInput
	for i, row := range sheet.Rows {
		if len(row.Cells) == 0 {
			continue
		}
		name := strings.TrimSpace(row.Cells[0].String())
		if name == "" {
			continue
		}
		if i == 0 && isHeaderCell(name) {
			continue
		}

		city := CityInput{Name: name}
		if len(row.Cells) > 1 {
			raw := strings.TrimSpace(row.Cells[1].String())
			if raw != "" {
				pop, err := strconv.Atoi(strings.ReplaceAll(raw, ",", ""))
				if err != nil {
					zap.L().Warn("roster: bad population, defaulting to zero",
						zap.Int("row", i+1), zap.String("city", name), zap.String("value", raw))
				} else {
					city.Population = pop
				}
			}
		}
		if len(row.Cells) > 2 {
			city.Territory = strings.TrimSpace(row.Cells[2].String())
		}
		cities = append(cities, city)
	}

	if len(cities) == 0 {
		return nil, eris.Errorf("roster: workbook %s has no usable rows", path)
	}
	return cities, nil
}

// ParseCityRoster dispatches on file extension.
func ParseCityRoster(path string) ([]CityInput, error) {
	switch {
	case strings.HasSuffix(strings.ToLower(path), ".xlsx"):
		return ParseCityXLSX(path)
	default:
		return ParseCityCSVFile(path)
	}
}

func isHeaderRow(record []string) bool {
	return isHeaderCell(record[0])
}

func isHeaderCell(first string) bool {
	switch strings.ToLower(strings.TrimSpace(first)) {
	case "name", "city", "city_name", "cityname":
		return true
	}
	return false
}
