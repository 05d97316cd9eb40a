package feed

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/eddiefleurent/scranton_spreads/internal/models"
)

// Data is the reconciler input loaded from a file.
type Data struct {
	Records []models.OrderRecord
	Events  []models.Event
}

// Load reads a .csv or .json history file.
func Load(path string) (*Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var data *Data
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		data, err = LoadCSV(f)
	case ".json":
		data, err = LoadJSON(f)
	default:
		return nil, fmt.Errorf("unsupported history file extension %q (want .csv or .json)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return data, nil
}
