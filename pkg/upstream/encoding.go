// Copyright © 2025 simple-frontend-dev, All Rights reserved
// Author: simple-frontend-dev maintainers

package upstream

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// acceptEncoding advertises every coding decodeChain understands.
const acceptEncoding = "br, gzip, zstd, deflate"

var errBodyTooLarge = errors.New("upstream body exceeds size limit")

// decodeChain undoes a Content-Encoding header such as "gzip, br". Codings are
// listed in the order they were applied, so they are removed right to left.
// Every intermediate result is capped at limit bytes.
func decodeChain(contentEncoding string, body []byte, limit int64) ([]byte, error) {
	if strings.TrimSpace(contentEncoding) == "" {
		return body, nil
	}

	codings := strings.Split(contentEncoding, ",")
	for i := len(codings) - 1; i >= 0; i-- {
		coding := strings.ToLower(strings.TrimSpace(codings[i]))
		switch coding {
		case "", "identity":
			continue
		}

		out, err := decodeOne(coding, body, limit)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", coding, err)
		}
		body = out
	}
	return body, nil
}

func decodeOne(coding string, body []byte, limit int64) ([]byte, error) {
	switch coding {
	case "br":
		return readLimited(brotli.NewReader(bytes.NewReader(body)), limit)
	case "gzip", "x-gzip":
		gr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		defer gr.Close()
		return readLimited(gr, limit)
	case "zstd":
		dec, err := zstd.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return readLimited(dec, limit)
	case "deflate":
		// zlib-wrapped per RFC 9110, raw DEFLATE from servers that ignore it.
		if zr, err := zlib.NewReader(bytes.NewReader(body)); err == nil {
			defer zr.Close()
			return readLimited(zr, limit)
		}
		fr := flate.NewReader(bytes.NewReader(body))
		defer fr.Close()
		return readLimited(fr, limit)
	default:
		return nil, fmt.Errorf("unsupported content-encoding %q", coding)
	}
}

// readLimited reads r fully, failing once more than limit bytes are produced.
// A limit of math.MaxInt64 reads without a cap.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit < math.MaxInt64 {
		r = io.LimitReader(r, limit+1)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if int64(len(out)) > limit {
		return nil, errBodyTooLarge
	}
	return out, nil
}
