// Command import-stations loads a station directory CSV into the database.
//
// Expected columns, with a header row: code,name,latitude,longitude[,operator].
// Empty latitude/longitude cells import a station without coordinates.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/James-Fry-2/train-data-api/internal/config"
	"github.com/James-Fry-2/train-data-api/internal/database"
	"github.com/James-Fry-2/train-data-api/internal/models"
	"github.com/James-Fry-2/train-data-api/internal/repository"
	"github.com/James-Fry-2/train-data-api/internal/spatial"
)

func main() {
	cfg := config.Load()

	file := flag.String("file", "stations.csv", "Path to the station CSV")
	dbPath := flag.String("db", cfg.DBPath, "Path to the SQLite database")
	flag.Parse()

	f, err := os.Open(*file)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", *file, err)
	}
	defer f.Close()

	stations, skipped, err := parseStations(f)
	if err != nil {
		log.Fatalf("Failed to parse %s: %v", *file, err)
	}

	db, err := database.Open(database.Config{Path: *dbPath})
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	if err := repository.NewStationRepository(db).Upsert(context.Background(), stations); err != nil {
		log.Fatalf("Import failed: %v", err)
	}
	log.Printf("Imported %d stations (%d rows skipped)", len(stations), skipped)
}

// parseStations reads station rows, skipping rows with an invalid code or coordinates
func parseStations(r io.Reader) ([]models.Station, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"code", "name"} {
		if _, ok := cols[required]; !ok {
			return nil, 0, fmt.Errorf("missing %q column", required)
		}
	}

	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var (
		stations []models.Station
		skipped  int
	)
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("line %d: %w", line, err)
		}

		code, err := models.NormalizeStationCode(field(rec, "code"))
		if err != nil || field(rec, "name") == "" {
			log.Printf("Skipping line %d: invalid code or name", line)
			skipped++
			continue
		}

		st := models.Station{
			Code:     code,
			Name:     field(rec, "name"),
			Operator: field(rec, "operator"),
		}
		latStr, lonStr := field(rec, "latitude"), field(rec, "longitude")
		if latStr != "" || lonStr != "" {
			lat, errLat := strconv.ParseFloat(latStr, 64)
			lon, errLon := strconv.ParseFloat(lonStr, 64)
			if errLat != nil || errLon != nil || !spatial.ValidCoordinates(lat, lon) {
				log.Printf("Skipping line %d: invalid coordinates", line)
				skipped++
				continue
			}
			st.Latitude, st.Longitude = &lat, &lon
		}
		stations = append(stations, st)
	}

	return stations, skipped, nil
}
