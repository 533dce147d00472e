package segments

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// ReadDownloads decodes download samples: a JSON object of seconds keyed by
// "period/representationId/segmentIndex", see DownloadKey.
func ReadDownloads(r io.Reader) (map[string]float64, error) {
	samples := map[string]float64{}
	if err := json.NewDecoder(r).Decode(&samples); err != nil {
		return nil, fmt.Errorf("failed to decode download samples: %w", err)
	}
	for key, v := range samples {
		if v < 0 {
			return nil, fmt.Errorf("negative download time %v for %s", v, key)
		}
	}
	return samples, nil
}

// LoadDownloads reads download samples from a file.
func LoadDownloads(path string) (map[string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open download samples: %w", err)
	}
	defer f.Close()
	return ReadDownloads(f)
}
