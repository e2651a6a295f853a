package usecase

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bottlematch/pkg/domain/model"
	"github.com/secmon-lab/bottlematch/pkg/utils/logging"
)

const maxImportLine = 4 << 20

// ImportRecord is one line of a JSON Lines import
type ImportRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ImageURL  string    `json:"image_url"`
	Embedding []float32 `json:"embedding"`
}

// Import reads JSON Lines of precomputed embeddings and upserts them in file
// order. Either every line is applied or none is. A missing name defaults to
// the id.
func (uc *UseCases) Import(ctx context.Context, r io.Reader) (int, error) {
	dim := uc.catalog.Dimension()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxImportLine)

	var records []*model.BottleRecord
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var in ImportRecord
		if err := json.Unmarshal([]byte(text), &in); err != nil {
			return 0, goerr.Wrap(err, "failed to parse import line", goerr.V("line", line))
		}
		name := in.Name
		if name == "" {
			name = in.ID
		}

		rec, err := model.NewBottleRecord(model.BottleID(in.ID), name, in.Embedding, in.ImageURL, dim)
		if err != nil {
			return 0, goerr.Wrap(err, "invalid import record", goerr.V("line", line))
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return 0, goerr.Wrap(err, "failed to read import stream", goerr.V("line", line))
	}

	if err := uc.catalog.UpsertRecords(records...); err != nil {
		return 0, goerr.Wrap(err, "failed to apply imported records")
	}
	logging.From(ctx).Info("records imported", "count", len(records), "catalog_size", uc.catalog.Size())

	if uc.persister != nil {
		if err := uc.Save(ctx); err != nil {
			return 0, err
		}
	}
	return len(records), nil
}
