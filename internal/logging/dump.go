package logging

import (
	"encoding/hex"
	"log/slog"
	"unicode/utf8"
)

// DumpBody logs up to limit bytes of b at trace level. Text bodies are
// logged verbatim, anything else as hex.
func DumpBody(logger *slog.Logger, label string, b []byte, limit int) {
	if logger == nil || len(b) == 0 {
		return
	}
	size := len(b)
	if limit > 0 && size > limit {
		size = limit
	}
	if utf8.Valid(b[:size]) {
		Trace(logger, label, "bytes", len(b), "shown", size, "body", string(b[:size]))
		return
	}
	Trace(logger, label, "bytes", len(b), "shown", size, "hex", hexBlock(b, 0, size))
}

func hexBlock(b []byte, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(b) {
		end = len(b)
	}
	if start >= end {
		return ""
	}
	segment := b[start:end]
	dst := make([]byte, hex.EncodedLen(len(segment)))
	hex.Encode(dst, segment)
	return string(dst)
}
