package persistence_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/bottlematch/pkg/service/persistence"
)

func TestVectorCodec(t *testing.T) {
	gen := uuid.New()
	entries := []persistence.VectorEntry{
		{ID: "ardbeg_10", Embedding: []float32{0.6, 0.8, 0}},
		{ID: "日本酒", Embedding: []float32{0, 0, 1}},
	}

	data, sum := persistence.EncodeVectors(gen, 3, entries)
	decoded, err := persistence.DecodeVectors(data)
	gt.NoError(t, err).Required()

	gt.Value(t, decoded.Generation).Equal(gen)
	gt.Value(t, decoded.Dimension).Equal(3)
	gt.Value(t, decoded.Checksum).Equal(sum)
	gt.Value(t, decoded.Entries).Equal(entries)
}

func TestVectorCodecEmpty(t *testing.T) {
	data, _ := persistence.EncodeVectors(uuid.New(), 512, nil)
	decoded, err := persistence.DecodeVectors(data)
	gt.NoError(t, err).Required()
	gt.Value(t, decoded.Dimension).Equal(512)
	gt.Array(t, decoded.Entries).Length(0)
}

func TestVectorCodecRejectsDamage(t *testing.T) {
	entries := []persistence.VectorEntry{{ID: "a", Embedding: []float32{1, 0}}}
	data, _ := persistence.EncodeVectors(uuid.New(), 2, entries)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"header only", data[:10]},
		{"missing trailer", data[:len(data)-4]},
		{"wrong magic", append([]byte("XXXX"), data[4:]...)},
		{"extra bytes", append(append([]byte{}, data...), 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := persistence.DecodeVectors(tt.data)
			gt.Error(t, err)
		})
	}
}
