package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

var namePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// Scaffolds a timestamped up/down migration pair, e.g.
// 20260829120000_add_vote_weights.{up,down}.sql.
func main() {
	name := flag.String("name", "", "migration name in lower_snake_case")
	dir := flag.String("dir", filepath.Join("db", "migrations"), "migrations directory")
	flag.Parse()

	if !namePattern.MatchString(*name) {
		log.Fatal("migration name must be non-empty lower_snake_case")
	}
	if err := os.MkdirAll(*dir, 0o755); err != nil {
		log.Fatalf("create migrations dir: %v", err)
	}

	version := time.Now().UTC().Format("20060102150405")
	for _, side := range []string{"up", "down"} {
		path := filepath.Join(*dir, fmt.Sprintf("%s_%s.%s.sql", version, *name, side))
		if _, err := os.Stat(path); err == nil {
			log.Fatalf("file already exists: %s", path)
		} else if !os.IsNotExist(err) {
			log.Fatalf("stat %s: %v", path, err)
		}
		stub := fmt.Sprintf("-- %s: %s\n", side, *name)
		if err := os.WriteFile(path, []byte(stub), 0o644); err != nil {
			log.Fatalf("create %s migration: %v", side, err)
		}
		log.Printf("created %s", path)
	}
}
