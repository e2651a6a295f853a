package persistence

import (
	"encoding/json"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

const metadataFormatVersion = 1

// metadataFile is the human-diffable half of a saved catalog. Generation and
// VectorsCRC32 pin it to the exact vector file written by the same save.
type metadataFile struct {
	Version      int              `json:"version"`
	Generation   string           `json:"generation"`
	Dimension    int              `json:"dimension"`
	Count        int              `json:"count"`
	VectorsCRC32 uint32           `json:"vectors_crc32"`
	SavedAt      time.Time        `json:"saved_at"`
	Records      []metadataRecord `json:"records"`
}

type metadataRecord struct {
	Index    int    `json:"index"`
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url,omitempty"`
}

func encodeMetadata(m *metadataFile) ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal catalog metadata")
	}
	return append(data, '\n'), nil
}

func decodeMetadata(data []byte) (*metadataFile, error) {
	var m metadataFile
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, goerr.Wrap(err, "failed to parse catalog metadata")
	}
	if m.Version != metadataFormatVersion {
		return nil, goerr.New("unsupported metadata version", goerr.V("version", m.Version))
	}
	return &m, nil
}
