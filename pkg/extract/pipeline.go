package extract

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Layer is a stream transformation such as a decompressor
type Layer interface {
	Name() string
	Wrap(r io.Reader) (io.ReadCloser, error)
}

// Unpacker writes the entries of a decoded stream into a directory
type Unpacker interface {
	Name() string
	Unpack(ctx context.Context, r io.Reader, dir string) error
}

// Pipeline opens the input, pushes it through Layers in order and hands
// the result to Unpack. It replaces ad hoc shell pipelines with discrete,
// separately testable steps.
type Pipeline struct {
	// Label overrides the generated name ("gzip+gzip+tar")
	Label  string
	Layers []Layer
	Unpack Unpacker
}

// Name returns the label or the joined step names
func (p *Pipeline) Name() string {
	if p.Label != "" {
		return p.Label
	}
	parts := make([]string, 0, len(p.Layers)+1)
	for _, l := range p.Layers {
		parts = append(parts, l.Name())
	}
	if p.Unpack != nil {
		parts = append(parts, p.Unpack.Name())
	}
	return strings.Join(parts, "+")
}

// Extract implements Method
func (p *Pipeline) Extract(ctx context.Context, inputPath, dir string) error {
	f, err := os.Open(inputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f
	for _, layer := range p.Layers {
		rc, err := layer.Wrap(r)
		if err != nil {
			return &CorruptError{Stage: layer.Name(), Err: err}
		}
		defer rc.Close()
		r = &corruptOnError{stage: layer.Name(), r: rc}
	}

	if p.Unpack == nil {
		return errors.New("pipeline has no unpacker")
	}
	return p.Unpack.Unpack(ctx, r, dir)
}

// Gunzip decompresses gzip, reading concatenated members as one stream
type Gunzip struct{}

// Name implements Layer
func (Gunzip) Name() string { return "gzip" }

// Wrap implements Layer
func (Gunzip) Wrap(r io.Reader) (io.ReadCloser, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	zr.Multistream(true)
	return zr, nil
}

// corruptOnError tags read failures of a decoding layer as ErrCorrupt,
// so they can be told apart from workspace write errors.
type corruptOnError struct {
	stage string
	r     io.Reader
}

func (c *corruptOnError) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if err != nil && err != io.EOF {
		var ce *CorruptError
		if !errors.As(err, &ce) {
			err = &CorruptError{Stage: c.stage, Err: err}
		}
	}
	return n, err
}
