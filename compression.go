package wrap

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io"
)

// CompressionCodec represents a slot payload compression algorithm.
type CompressionCodec string

const (
	CompressionNone CompressionCodec = ""
	CompressionGzip CompressionCodec = "gzip"
)

var (
	compressMagic = []byte("WCP1")

	ErrValueTooLarge      = errors.New("wrap: slot payload exceeds max size")
	ErrUnsupportedCodec   = errors.New("wrap: unsupported compression codec")
	ErrCorruptCompression = errors.New("wrap: corrupt compressed payload")
)

func encodeValue(codec CompressionCodec, max int, value []byte) ([]byte, error) {
	if max > 0 && len(value) > max {
		return nil, ErrValueTooLarge
	}
	switch codec {
	case CompressionNone:
		return value, nil
	case CompressionGzip:
		var buf bytes.Buffer
		buf.Write(compressMagic)
		_ = buf.WriteByte('g')
		zw, _ := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
		if _, err := zw.Write(value); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		out := buf.Bytes()
		if max > 0 && len(out) > max {
			return nil, ErrValueTooLarge
		}
		return out, nil
	default:
		return nil, ErrUnsupportedCodec
	}
}

func decodeValue(in []byte) ([]byte, error) {
	if len(in) < len(compressMagic)+1 {
		return in, nil
	}
	if !bytes.Equal(in[:len(compressMagic)], compressMagic) {
		return in, nil
	}
	codec := in[len(compressMagic)]
	payload := in[len(compressMagic)+1:]
	switch codec {
	case 'g':
		zr, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, ErrCorruptCompression
		}
		defer func() { _ = zr.Close() }()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, ErrCorruptCompression
		}
		return out, nil
	default:
		return nil, ErrUnsupportedCodec
	}
}
