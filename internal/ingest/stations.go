package ingest

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"curtailwatch/internal/storage"
)

// StationHeader is the header written by WriteStations.
const StationHeader = "场站,方位角,倾角,经度,纬度,区域"

var stationSeparators = strings.NewReplacer("，", ",", "\t", ",")

// ReadStations parses a station list. Each line is either
// name,lon,lat[,region] or name,azimuth,tilt,lon,lat[,region]; commas,
// full-width commas and tabs all separate fields. A leading header row naming
// 场站 or 站名 is skipped, as are lines with fewer than three fields.
func ReadStations(r io.Reader) ([]storage.Station, error) {
	scanner := bufio.NewScanner(r)
	out := make([]storage.Station, 0)
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if line == "" {
			continue
		}
		if first {
			first = false
			if strings.Contains(line, "场站") || strings.Contains(line, "站名") {
				continue
			}
		}

		parts := strings.Split(stationSeparators.Replace(line), ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		var st storage.Station
		switch {
		case len(parts) >= 5:
			st = storage.Station{
				Name:    parts[0],
				Azimuth: parseOrZero(parts[1]),
				Tilt:    parseOrZero(parts[2]),
				Lon:     parseOrZero(parts[3]),
				Lat:     parseOrZero(parts[4]),
			}
			if len(parts) > 5 {
				st.Region = parts[5]
			}
		case len(parts) >= 3:
			st = storage.Station{
				Name: parts[0],
				Lon:  parseOrZero(parts[1]),
				Lat:  parseOrZero(parts[2]),
			}
			if len(parts) > 3 {
				st.Region = parts[3]
			}
		default:
			continue
		}
		if st.Name == "" {
			continue
		}
		out = append(out, st)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stations: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrNoRows
	}
	return out, nil
}

// WriteStations writes the registry in the six-column layout ReadStations
// accepts, prefixed with a UTF-8 BOM so spreadsheet tools detect the encoding.
func WriteStations(w io.Writer, stations []storage.Station) error {
	buf := bufio.NewWriter(w)
	buf.WriteString("\ufeff" + StationHeader + "\n")
	for _, st := range stations {
		fmt.Fprintf(buf, "%s,%s,%s,%s,%s,%s\n",
			st.Name,
			formatFloat(st.Azimuth),
			formatFloat(st.Tilt),
			formatFloat(st.Lon),
			formatFloat(st.Lat),
			st.Region,
		)
	}
	return buf.Flush()
}

func parseOrZero(raw string) float64 {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}

func formatFloat(v float64) string {
	return decimal.NewFromFloat(v).String()
}
