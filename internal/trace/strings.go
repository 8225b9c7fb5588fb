package trace

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"
)

// StringTable maps interned string ids to their values.
//
// The table is populated by an external collaborator (the symbol side file
// or the transport) and consulted by the decoder for entity names and
// origin file names. Values are NFC normalized so equal names group
// together regardless of how the producer composed them.
//
// Thread-safety: safe for concurrent use.
type StringTable struct {
	mu     sync.RWMutex
	values map[uint32]string
}

// NewStringTable creates an empty table.
func NewStringTable() *StringTable {
	return &StringTable{values: make(map[uint32]string)}
}

// AddStrings registers values under the parallel ids. Later registrations of
// the same id overwrite earlier ones. Nothing is added on length mismatch.
func (t *StringTable) AddStrings(ids []uint32, values []string) error {
	if len(ids) != len(values) {
		return fmt.Errorf("add strings: %d ids but %d values", len(ids), len(values))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for i, id := range ids {
		t.values[id] = norm.NFC.String(values[i])
	}
	return nil
}

// Lookup returns the string registered under id.
func (t *StringTable) Lookup(id uint32) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.values[id]
	return v, ok
}

// Len returns the number of registered strings.
func (t *StringTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.values)
}

// ParseSymbols reads a symbol side file: one "id:string" entry per line.
// The string is everything after the first colon and may itself contain
// colons. Blank lines are skipped.
func ParseSymbols(r io.Reader) (ids []uint32, values []string, err error) {
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}

		idPart, value, ok := strings.Cut(text, ":")
		if !ok {
			return nil, nil, fmt.Errorf("parse symbols: line %d: missing ':'", line)
		}
		id, convErr := strconv.ParseUint(strings.TrimSpace(idPart), 10, 32)
		if convErr != nil {
			return nil, nil, fmt.Errorf("parse symbols: line %d: %w", line, convErr)
		}
		ids = append(ids, uint32(id))
		values = append(values, value)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("parse symbols: %w", err)
	}
	return ids, values, nil
}
