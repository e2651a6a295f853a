package usecase_test

import (
	"context"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/bottlematch/pkg/domain/model"
	"github.com/secmon-lab/bottlematch/pkg/repository/memory"
	"github.com/secmon-lab/bottlematch/pkg/service/persistence"
	"github.com/secmon-lab/bottlematch/pkg/usecase"
)

func TestImport(t *testing.T) {
	input := `{"id":"A","name":"Alpha","image_url":"images/A.jpg","embedding":[3,4]}

{"id":"B","embedding":[0,1]}
{"id":"A","name":"Alpha v2","embedding":[1,0]}
`
	store := memory.New()
	c := newCatalog(t, 2)
	uc := usecase.New(c, usecase.WithPersister(persistence.New(store)))

	n, err := uc.Import(context.Background(), strings.NewReader(input))
	gt.NoError(t, err).Required()
	gt.Value(t, n).Equal(3)

	records := c.ListAll()
	gt.Array(t, records).Length(2).Required()
	gt.Value(t, records[0].ID).Equal(model.BottleID("A"))
	gt.Value(t, records[0].Name).Equal("Alpha v2")
	gt.Value(t, records[0].ImageURL).Equal("")
	gt.Value(t, records[0].Embedding).Equal([]float32{1, 0})
	gt.Value(t, records[1].Name).Equal("B")

	loaded, err := persistence.New(store).Load(context.Background(), 2)
	gt.NoError(t, err).Required()
	gt.Value(t, loaded.Size()).Equal(2)
}

func TestImportIsAllOrNothing(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{
			name:  "malformed json",
			input: "{\"id\":\"A\",\"embedding\":[1,0]}\n{\"id\":",
		},
		{
			name:  "wrong dimension",
			input: "{\"id\":\"A\",\"embedding\":[1,0]}\n{\"id\":\"B\",\"embedding\":[1,0,0]}",
			want:  model.ErrInvalidEmbedding,
		},
		{
			name:  "zero vector",
			input: "{\"id\":\"A\",\"embedding\":[0,0]}",
			want:  model.ErrInvalidEmbedding,
		},
		{
			name:  "missing id",
			input: "{\"name\":\"nameless\",\"embedding\":[1,0]}",
			want:  model.ErrInvalidBottleID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCatalog(t, 2)
			gt.NoError(t, c.Upsert("existing", "", []float32{0, 1}, "")).Required()

			_, err := usecase.New(c).Import(context.Background(), strings.NewReader(tt.input))
			if tt.want != nil {
				gt.Error(t, err).Is(tt.want)
			} else {
				gt.Error(t, err)
			}
			gt.Value(t, c.Size()).Equal(1)
		})
	}
}
