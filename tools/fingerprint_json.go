package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/dropDatabas3/authledger/internal/fingerprint"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run fingerprint_json.go '<json>'")
	}

	var v map[string]any
	if err := json.Unmarshal([]byte(os.Args[1]), &v); err != nil {
		log.Fatalf("Invalid JSON: %v", err)
	}

	fp, err := fingerprint.Structure(v)
	if err != nil {
		log.Fatalf("Fingerprint failed: %v", err)
	}
	fmt.Printf("Fingerprint: %s\n", fp)
}
