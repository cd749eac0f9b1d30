package ifc

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/kailas-cloud/bimquery/internal/ifc/step"
	"github.com/kailas-cloud/bimquery/internal/usecase/indexing"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Parser reads .ifc files, optionally gzip or zstd compressed.
type Parser struct {
	// MaxBytes bounds the decompressed size. 0 means unbounded.
	MaxBytes int64
}

// NewParser creates a parser with a decompressed size limit.
func NewParser(maxBytes int64) *Parser {
	return &Parser{MaxBytes: maxBytes}
}

// Parse decompresses r if needed and parses the exchange file.
func (p *Parser) Parse(ctx context.Context, r io.Reader) (*Model, error) {
	body, closeFn, err := decompress(bufio.NewReader(r))
	if err != nil {
		return nil, err
	}
	defer closeFn()

	if p.MaxBytes > 0 {
		body = io.LimitReader(body, p.MaxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	if p.MaxBytes > 0 && int64(len(data)) > p.MaxBytes {
		return nil, fmt.Errorf("model exceeds %d bytes", p.MaxBytes)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse model: %w", err)
	}

	f, err := step.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse model: %w", err)
	}
	return NewModel(f), nil
}

// Load is Parse behind the indexing.Model interface.
func (p *Parser) Load(ctx context.Context, r io.Reader) (indexing.Model, error) {
	m, err := p.Parse(ctx, r)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func decompress(br *bufio.Reader) (io.Reader, func(), error) {
	head, _ := br.Peek(len(zstdMagic))
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, nil, fmt.Errorf("open gzip stream: %w", err)
		}
		return zr, func() { _ = zr.Close() }, nil
	case bytes.HasPrefix(head, zstdMagic):
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, nil, fmt.Errorf("open zstd stream: %w", err)
		}
		return dec, dec.Close, nil
	}
	return br, func() {}, nil
}
