package ruleset

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dukex/lineforge/pkg/models"
)

// LoadCatalog decodes an item id to display name map.
func LoadCatalog(r io.Reader, format Format) (models.StaticCatalog, error) {
	raw, err := toJSON(r, format)
	if err != nil {
		return nil, err
	}

	var catalog models.StaticCatalog
	if err := json.Unmarshal(raw, &catalog); err != nil {
		return nil, fmt.Errorf("%w: catalog: %w", ErrInvalidDocument, err)
	}

	return catalog, nil
}

// LoadCatalogFile reads a catalog from path.
func LoadCatalogFile(path string) (models.StaticCatalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()

	return LoadCatalog(f, FormatFromPath(path))
}
