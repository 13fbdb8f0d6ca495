package vm

import (
	"bytes"
	"encoding/binary"
	"strconv"
)

// ---------------------------------------------------------------------------
// Heap: address-keyed symbol table
// ---------------------------------------------------------------------------

type heapEntry struct {
	key   string
	value []byte
}

// Heap is an unordered table of byte payloads keyed by text. Lookups scan
// linearly; storage doubles when full and never shrinks.
type Heap struct {
	entries []heapEntry
}

// NewHeap returns an empty heap with room for two entries.
func NewHeap() *Heap {
	return &Heap{entries: make([]heapEntry, 0, 2)}
}

func (h *Heap) find(key string) int {
	for i := range h.entries {
		if h.entries[i].key == key {
			return i
		}
	}
	return -1
}

// Set stores a copy of value under key, replacing any existing payload.
func (h *Heap) Set(key string, value []byte) {
	if i := h.find(key); i >= 0 {
		e := &h.entries[i]
		if len(e.value) != len(value) {
			e.value = make([]byte, len(value))
		}
		copy(e.value, value)
		return
	}

	if len(h.entries) == cap(h.entries) {
		grown := make([]heapEntry, len(h.entries), 2*cap(h.entries))
		copy(grown, h.entries)
		h.entries = grown
	}
	h.entries = append(h.entries, heapEntry{key: key, value: bytes.Clone(value)})
}

// Get returns the payload stored under key. The slice is owned by the heap.
func (h *Heap) Get(key string) ([]byte, bool) {
	if i := h.find(key); i >= 0 {
		return h.entries[i].value, true
	}
	return nil, false
}

// Len returns the number of keys.
func (h *Heap) Len() int {
	return len(h.entries)
}

// Cap returns the current storage capacity.
func (h *Heap) Cap() int {
	return cap(h.entries)
}

// Keys returns the keys in insertion order.
func (h *Heap) Keys() []string {
	keys := make([]string, len(h.entries))
	for i, e := range h.entries {
		keys[i] = e.key
	}
	return keys
}

// StoreInt stores v at the decimal rendering of addr.
func (h *Heap) StoreInt(addr, v int64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	h.Set(strconv.FormatInt(addr, 10), buf[:])
}

// LoadInt loads the integer stored at addr. Payloads that are not eight
// bytes long are reported as missing.
func (h *Heap) LoadInt(addr int64) (int64, bool) {
	b, ok := h.Get(strconv.FormatInt(addr, 10))
	if !ok || len(b) != 8 {
		return 0, false
	}
	return int64(binary.LittleEndian.Uint64(b)), true
}
