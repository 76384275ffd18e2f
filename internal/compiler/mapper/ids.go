package mapper

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// ============================================================
// Identifier Mapper
// ============================================================

var ErrMappingCycle = errors.New("id mapping contains a cycle")

// IDMapper translates raw SVG element ids into canonical province and coast
// ids. Chains in the correction table are resolved at construction so that
// every canonical id maps to itself.
type IDMapper struct {
	table map[string]string
}

// NewIDMapper resolves table into fixed points. Entries mapping an id to
// itself are dropped; a cycle is an error.
func NewIDMapper(table map[string]string) (*IDMapper, error) {
	resolved := make(map[string]string, len(table))

	raws := make([]string, 0, len(table))
	for raw := range table {
		raws = append(raws, raw)
	}
	sort.Strings(raws)

	for _, raw := range raws {
		target, err := resolve(table, raw)
		if err != nil {
			return nil, err
		}
		if target != raw {
			resolved[raw] = target
		}
	}
	return &IDMapper{table: resolved}, nil
}

func resolve(table map[string]string, raw string) (string, error) {
	seen := map[string]bool{raw: true}
	cur := raw
	for {
		next, ok := table[cur]
		if !ok || next == cur {
			return cur, nil
		}
		if seen[next] {
			return "", fmt.Errorf("%w: %s", ErrMappingCycle, raw)
		}
		seen[next] = true
		cur = next
	}
}

// MustIDMapper is NewIDMapper for tables known to be acyclic.
func MustIDMapper(table map[string]string) *IDMapper {
	m, err := NewIDMapper(table)
	if err != nil {
		panic(err)
	}
	return m
}

// MappedID returns the canonical id for raw, or raw itself when no
// correction exists. It never fails.
func (m *IDMapper) MappedID(raw string) string {
	if m == nil {
		return raw
	}
	if mapped, ok := m.table[raw]; ok {
		return mapped
	}
	return raw
}

// Len reports the number of effective corrections.
func (m *IDMapper) Len() int {
	if m == nil {
		return 0
	}
	return len(m.table)
}

// ============================================================
// Loading
// ============================================================

// LoadIDMapper reads a JSON object of raw → canonical ids.
func LoadIDMapper(r io.Reader) (*IDMapper, error) {
	var table map[string]string
	if err := json.NewDecoder(r).Decode(&table); err != nil {
		return nil, fmt.Errorf("decode id mapping: %w", err)
	}
	for raw, canonical := range table {
		if strings.TrimSpace(raw) == "" || strings.TrimSpace(canonical) == "" {
			return nil, fmt.Errorf("id mapping has empty entry %q → %q", raw, canonical)
		}
	}
	return NewIDMapper(table)
}

// LoadIDMapperFile loads a mapping file; an empty path yields the identity mapper.
func LoadIDMapperFile(path string) (*IDMapper, error) {
	if path == "" {
		return NewIDMapper(nil)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open id mapping: %w", err)
	}
	defer f.Close()
	return LoadIDMapper(f)
}
