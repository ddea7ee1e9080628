package pricing

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
)

//go:embed bundled.json
var bundledJSON []byte

type tableFile struct {
	Version string           `json:"version"`
	Models  map[string]Entry `json:"models"`
}

// Bundled returns the table compiled into the binary.
func Bundled() *Table {
	var tf tableFile
	if err := json.Unmarshal(bundledJSON, &tf); err != nil {
		// The embedded table is part of the build; a decode failure is a
		// packaging bug, not a runtime condition.
		panic(fmt.Sprintf("pricing: bundled table corrupt: %v", err))
	}
	return NewTable(tf.Version, tf.Models)
}

// Load builds the effective table. With offline set or no path given, the
// bundled table is used as is. Otherwise entries from the local file
// overlay the bundled ones and the file's version wins when present.
func Load(path string, offline bool) (*Table, error) {
	if offline || path == "" {
		return Bundled(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pricing table %s: %w", path, err)
	}
	var tf tableFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parsing pricing table %s: %w", path, err)
	}

	var bundled tableFile
	if err := json.Unmarshal(bundledJSON, &bundled); err != nil {
		panic(fmt.Sprintf("pricing: bundled table corrupt: %v", err))
	}
	merged := make(map[string]Entry, len(bundled.Models)+len(tf.Models))
	for k, e := range bundled.Models {
		merged[k] = e
	}
	for k, e := range tf.Models {
		merged[k] = e
	}

	version := tf.Version
	if version == "" {
		version = bundled.Version
	}
	return NewTable(version, merged), nil
}
