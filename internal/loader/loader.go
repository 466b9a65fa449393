// Package loader handles method body file loading operations.
package loader

import (
	"bytes"
	"fmt"
	"os"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/retropatch/internal/codec"
	"github.com/retroenv/retropatch/internal/detector"
	"github.com/retroenv/retropatch/internal/listing"
	"github.com/retroenv/retropatch/internal/method"
)

// Loader handles loading method bodies from disk.
type Loader struct {
	decoder *listing.Decoder
}

// New creates a new method body loader.
func New(logger *log.Logger) *Loader {
	return &Loader{
		decoder: listing.NewDecoder(logger),
	}
}

// Load reads all method bodies of the file in the given format.
func (l *Loader) Load(path string, format detector.Format) ([]*method.Body, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}

	bodies, err := l.LoadFromBytes(data, format)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return bodies, nil
}

// LoadFromBytes decodes all method bodies of the data in the given format.
func (l *Loader) LoadFromBytes(data []byte, format detector.Format) ([]*method.Body, error) {
	var (
		bodies []*method.Body
		err    error
	)

	switch format {
	case detector.Snapshot:
		bodies, err = codec.Unmarshal(data)
	default:
		bodies, err = l.decoder.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", format, err)
	}
	return bodies, nil
}
