package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"
)

// LoadSeed imports authors and comments from a JSON file shaped like State.
// A missing file is not an error.
func LoadSeed(ctx context.Context, repo Repository, path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logrus.Infof("No seed data found at %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to decode seed file %s: %w", path, err)
	}

	if err := repo.Import(ctx, state); err != nil {
		return fmt.Errorf("failed to import seed data: %w", err)
	}

	logrus.Infof("Loaded %d authors and %d comments from %s", len(state.Authors), len(state.Comments), path)
	return nil
}
