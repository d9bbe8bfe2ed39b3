package catalog_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func TestSchema_ValidatesShippedCatalogue(t *testing.T) {
	schemaPath := filepath.Join("..", "..", "..", "schemas", "catalog.schema.json")
	s, err := jsonschema.Compile(schemaPath)
	if err != nil {
		t.Fatalf("compile schema: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join("..", "..", "..", "configs", "events.json"))
	if err != nil {
		t.Fatalf("read catalogue: %v", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("decode catalogue: %v", err)
	}
	if err := s.Validate(doc); err != nil {
		t.Fatalf("shipped catalogue must satisfy schema: %v", err)
	}

	var bad any
	_ = json.Unmarshal([]byte(`{
	  "events": [
	    {"id": "dup", "weight": 1, "cooldown": 0, "min_runtime": 0,
	     "duration": 5, "phases": [{"type": "a", "duration": 5}]}
	  ]
	}`), &bad)
	if err := s.Validate(bad); err == nil {
		t.Fatalf("duration alongside phases must be rejected")
	}

	var badTier any
	_ = json.Unmarshal([]byte(`{
	  "events": [
	    {"id": "ev", "type": "rare", "weight": 1, "cooldown": 0, "min_runtime": 0,
	     "duration": 5, "scheduler": {"tier": 3}}
	  ]
	}`), &badTier)
	if err := s.Validate(badTier); err == nil {
		t.Fatalf("out-of-range tier must be rejected")
	}
}
