// Package main is a diagnostic tool for testing database connectivity and
// inspecting live hub data. It connects to the database, queries the
// organizations and applications tables, and prints a summary to stdout. The
// binary exits with a non-zero code on any failure so it can be embedded in
// health checks or CI/CD pipeline steps to gate deployments on a reachable,
// populated database.
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
)

func main() {
	dbPassword := os.Getenv("DATABASE_PASSWORD")
	if dbPassword == "" {
		dbPassword = "hub"
	}

	connStr := fmt.Sprintf("host=localhost port=5432 user=hub password=%s dbname=integration_hub sslmode=disable", dbPassword)
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	// Check organizations
	fmt.Println("=== ORGANIZATIONS ===")
	rows, err := db.Query("SELECT id, name, display_name FROM organizations")
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, name, displayName string
		if err := rows.Scan(&id, &name, &displayName); err != nil {
			log.Printf("Warning: failed to scan organization row: %v", err)
			continue
		}
		fmt.Printf("Organization: %s (%s, ID: %s)\n", name, displayName, id)
	}

	// Check applications and their key counts
	fmt.Println("\n=== APPLICATIONS ===")
	rows2, err := db.Query(`
		SELECT a.id, a.name, a.status,
		       (SELECT COUNT(*) FROM application_api_keys k WHERE k.application_id = a.id AND k.status IN ('ACTIVE', 'ROTATING')) AS usable_keys
		FROM applications a`)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	defer rows2.Close()

	count := 0
	for rows2.Next() {
		var id, name, status string
		var usableKeys int
		if err := rows2.Scan(&id, &name, &status, &usableKeys); err != nil {
			log.Printf("Warning: failed to scan application row: %v", err)
			continue
		}
		fmt.Printf("Application: %s (ID: %s) - status: %s, usable keys: %d\n", name, id, status, usableKeys)
		count++
	}

	if count == 0 {
		fmt.Println("No applications found!")
	}
}
