package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrFailedExtraction marks a result the upstream engine already reported as
// failed. The segmentation core has no recovery logic for it.
var ErrFailedExtraction = errors.New("extraction result marked failed upstream")

// LoadResult reads an extraction result from a JSON file produced by the
// extraction engine.
func LoadResult(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read extraction result: %w", err)
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parse extraction result %s: %w", path, err)
	}
	return &result, nil
}

// Validate rejects results that must not enter the pipeline.
func (r *Result) Validate() error {
	if !r.Success {
		if r.Error != "" {
			return fmt.Errorf("%w: %s", ErrFailedExtraction, r.Error)
		}
		return ErrFailedExtraction
	}
	return nil
}
