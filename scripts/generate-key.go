// Package main is a development utility for generating a test API key with its bcrypt hash
// and display prefix pre-computed. It prints the raw key, hash, prefix, and a ready-to-run
// SQL UPDATE statement so developers can quickly seed a usable API key in a local database
// without running the full server flow. Do not use generated keys in production — use the
// admin console or API to create keys through the normal lifecycle.
package main

import (
	"fmt"
	"log"

	"github.com/oneredboot/orb-integration-hub/internal/auth"
	"github.com/oneredboot/orb-integration-hub/internal/db/models"
)

func main() {
	fullKey, hash, displayPrefix, err := auth.GenerateAPIKey(models.EnvironmentDevelopment)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("==========================================================")
	fmt.Println("API Key Generated")
	fmt.Println("==========================================================")
	fmt.Printf("\nFull Key: %s\n", fullKey)
	fmt.Printf("\nHash: %s\n", hash)
	fmt.Printf("\nDisplay Prefix: %s\n", displayPrefix)
	fmt.Println("\n==========================================================")
	fmt.Println("SQL Update:")
	fmt.Println("==========================================================")
	fmt.Printf(`
UPDATE application_api_keys
SET key_hash = '%s',
    key_prefix = '%s',
    status = 'ACTIVE'
WHERE environment = 'DEVELOPMENT'
  AND application_id = (SELECT id FROM applications WHERE name = 'local-dev');
`, hash, displayPrefix)
	fmt.Println("\n==========================================================")
	fmt.Printf("Authorization Header: Bearer %s\n", fullKey)
	fmt.Println("==========================================================")
}
