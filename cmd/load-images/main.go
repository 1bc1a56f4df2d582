package main

import (
	"encoding/csv"
	"flag"
	"log"
	"os"
	"strings"

	"odd-one-out/internal/config"
	"odd-one-out/internal/db"
)

type imageRecord struct {
	FilePath string
	Title    string
	Category string
}

func main() {
	filePath := flag.String("file", "images.csv", "path to image catalog csv")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}

	conn, err := db.Open()
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	records, err := readImages(*filePath)
	if err != nil {
		log.Fatalf("failed to read image catalog: %v", err)
	}

	inserted := 0
	for _, record := range records {
		entry := db.CatalogImage{
			FilePath: record.FilePath,
			Title:    record.Title,
			Category: record.Category,
		}
		if err := conn.FirstOrCreate(&entry, db.CatalogImage{FilePath: entry.FilePath}).Error; err != nil {
			log.Fatalf("failed to upsert image: %v", err)
		}
		inserted++
	}

	log.Printf("loaded %d catalog images", inserted)
}

func readImages(path string) ([]imageRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var records []imageRecord
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) < 3 {
			continue
		}
		filePath := strings.TrimSpace(row[0])
		title := strings.TrimSpace(row[1])
		category := strings.TrimSpace(row[2])
		if filePath == "" || title == "" || category == "" {
			continue
		}
		records = append(records, imageRecord{FilePath: filePath, Title: title, Category: category})
	}
	return records, nil
}
