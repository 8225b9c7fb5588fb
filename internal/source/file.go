package source

import (
	"fmt"
	"os"
	"strings"

	"github.com/roach88/causeway/internal/trace"
)

// SymbolsPath returns the symbol side file belonging to a trace file.
func SymbolsPath(tracePath string) string {
	return strings.TrimSuffix(tracePath, ".trace") + ".sym"
}

// ReadFile reads a whole trace file.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	return data, nil
}

// ReadSymbols reads a symbol side file. A missing file yields no symbols
// and no error, since a trace may have been recorded without one.
func ReadSymbols(path string) ([]uint32, []string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read symbols: %w", err)
	}
	defer f.Close()
	return trace.ParseSymbols(f)
}

// SplitRecords cuts buf into chunks of at most perChunk whole records.
// perChunk <= 0 returns buf as a single chunk.
//
// Sizing uses the record framing only, so nothing is decoded. When buf ends
// in a partial record, the chunks before it are returned together with the
// *trace.FormatError, and the partial record becomes the final chunk so the
// decoder reports it.
func SplitRecords(buf []byte, perChunk int) ([][]byte, error) {
	if len(buf) == 0 {
		return nil, nil
	}
	if perChunk <= 0 {
		_, err := trace.Split(buf)
		return [][]byte{buf}, err
	}

	var chunks [][]byte
	start, count := 0, 0
	off := 0
	for off < len(buf) {
		n, err := trace.RecordLength(buf, off)
		if err != nil {
			if start < off {
				chunks = append(chunks, buf[start:off])
			}
			return append(chunks, buf[off:]), err
		}
		off += n
		count++
		if count == perChunk {
			chunks = append(chunks, buf[start:off])
			start, count = off, 0
		}
	}
	if start < len(buf) {
		chunks = append(chunks, buf[start:])
	}
	return chunks, nil
}

// completePrefix returns the length of the longest prefix of buf made of
// whole records.
func completePrefix(buf []byte) int {
	off := 0
	for off < len(buf) {
		n, err := trace.RecordLength(buf, off)
		if err != nil {
			break
		}
		off += n
	}
	return off
}
