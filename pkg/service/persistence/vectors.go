package persistence

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"math"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bottlematch/pkg/domain/model"
)

// Vector file layout, little-endian:
//
//	magic "BMVC" | version u16 | reserved u16 | dimension u32 | count u32 | generation [16]byte
//	count × ( idLen u32 | id | dimension × float32 )
//	crc32 (IEEE) of every preceding byte
var vectorMagic = []byte("BMVC")

const (
	vectorFormatVersion = 1
	vectorHeaderSize    = 4 + 2 + 2 + 4 + 4 + 16
	vectorTrailerSize   = 4
)

type vectorEntry struct {
	ID        model.BottleID
	Embedding []float32
}

type vectorFile struct {
	Generation uuid.UUID
	Dimension  int
	Entries    []vectorEntry
	Checksum   uint32
}

func encodeVectors(gen uuid.UUID, dim int, entries []vectorEntry) ([]byte, uint32) {
	size := vectorHeaderSize + vectorTrailerSize
	for _, e := range entries {
		size += 4 + len(e.ID) + 4*dim
	}

	out := make([]byte, 0, size)
	out = append(out, vectorMagic...)
	out = binary.LittleEndian.AppendUint16(out, vectorFormatVersion)
	out = binary.LittleEndian.AppendUint16(out, 0)
	out = binary.LittleEndian.AppendUint32(out, uint32(dim))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(entries)))
	out = append(out, gen[:]...)

	for _, e := range entries {
		out = binary.LittleEndian.AppendUint32(out, uint32(len(e.ID)))
		out = append(out, e.ID...)
		for _, v := range e.Embedding {
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
		}
	}

	sum := crc32.ChecksumIEEE(out)
	out = binary.LittleEndian.AppendUint32(out, sum)
	return out, sum
}

func decodeVectors(data []byte) (*vectorFile, error) {
	if len(data) < vectorHeaderSize+vectorTrailerSize {
		return nil, goerr.New("vector file is truncated", goerr.V("size", len(data)))
	}
	if !bytes.Equal(data[:4], vectorMagic) {
		return nil, goerr.New("vector file has an unknown magic", goerr.V("magic", data[:4]))
	}

	body := data[:len(data)-vectorTrailerSize]
	want := binary.LittleEndian.Uint32(data[len(data)-vectorTrailerSize:])
	if got := crc32.ChecksumIEEE(body); got != want {
		return nil, goerr.New("vector file checksum mismatch", goerr.V("want", want), goerr.V("got", got))
	}

	off := 4
	u16 := func() uint16 { v := binary.LittleEndian.Uint16(body[off:]); off += 2; return v }
	u32 := func() uint32 { v := binary.LittleEndian.Uint32(body[off:]); off += 4; return v }

	if version := u16(); version != vectorFormatVersion {
		return nil, goerr.New("unsupported vector file version", goerr.V("version", version))
	}
	_ = u16()
	dim := int(u32())
	count := int(u32())
	gen, err := uuid.FromBytes(body[off : off+16])
	if err != nil {
		return nil, goerr.Wrap(err, "invalid vector file generation")
	}
	off += 16

	if dim <= 0 {
		return nil, goerr.New("vector file declares a non-positive dimension", goerr.V(model.DimensionKey, dim))
	}
	// every entry needs at least its length prefix and vector
	if count < 0 || count > (len(body)-off)/(4+4*dim) {
		return nil, goerr.New("vector file count exceeds its size", goerr.V("count", count))
	}

	entries := make([]vectorEntry, count)
	for i := range entries {
		if off+4 > len(body) {
			return nil, goerr.New("vector file is truncated", goerr.V("entry", i))
		}
		idLen := int(u32())
		if idLen > len(body)-off || off+idLen+4*dim > len(body) {
			return nil, goerr.New("vector file is truncated", goerr.V("entry", i))
		}
		id := model.BottleID(body[off : off+idLen])
		off += idLen

		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = math.Float32frombits(u32())
		}
		entries[i] = vectorEntry{ID: id, Embedding: vec}
	}

	if off != len(body) {
		return nil, goerr.New("vector file has trailing bytes", goerr.V("extra", len(body)-off))
	}

	return &vectorFile{
		Generation: gen,
		Dimension:  dim,
		Entries:    entries,
		Checksum:   want,
	}, nil
}
