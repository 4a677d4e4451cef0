package cache

import "container/list"

// lruIndex is an ordered mapping from entry path to cumulative byte size.
// List order is recency: the front is the oldest entry and the next
// eviction candidate, the back is the most recently used. Sizes are
// cumulative because multi-file entries register once per file.
//
// lruIndex is not safe for concurrent use; Cache guards it with a mutex
// held only for bookkeeping.
type lruIndex struct {
	ll    *list.List
	items map[string]*list.Element
	total uint64
}

// indexEntry is the list element payload.
type indexEntry struct {
	path string
	size uint64
}

func newLRUIndex() *lruIndex {
	return &lruIndex{
		ll:    list.New(),
		items: make(map[string]*list.Element),
	}
}

// add accumulates size onto path's entry, creating it at the
// most-recently-used position if absent. An existing entry keeps its
// current position: a growing multi-file insert does not re-rank itself.
func (x *lruIndex) add(path string, size uint64) {
	if elem, ok := x.items[path]; ok {
		elem.Value.(*indexEntry).size += size
	} else {
		x.items[path] = x.ll.PushBack(&indexEntry{path: path, size: size})
	}
	x.total += size
}

// touch moves path to the most-recently-used position. It reports false
// if path is not tracked.
func (x *lruIndex) touch(path string) bool {
	elem, ok := x.items[path]
	if !ok {
		return false
	}
	x.ll.MoveToBack(elem)
	return true
}

// remove drops path from the index, returning its recorded size.
func (x *lruIndex) remove(path string) (uint64, bool) {
	elem, ok := x.items[path]
	if !ok {
		return 0, false
	}
	entry := x.ll.Remove(elem).(*indexEntry)
	delete(x.items, path)
	x.total -= entry.size
	return entry.size, true
}

// evictOldest walks the index oldest-first removing entries until at least
// missing bytes have been reclaimed or no candidates remain. The entry at
// skip is never considered: an entry is not evicted to make room for its
// own next file. The remove callback deletes the entry from disk before
// it is dropped from the index; its error aborts the sweep.
func (x *lruIndex) evictOldest(skip string, missing uint64, remove func(path string) error) (uint64, int, error) {
	var freed uint64
	var count int

	elem := x.ll.Front()
	for elem != nil && freed < missing {
		next := elem.Next()
		entry := elem.Value.(*indexEntry)

		if entry.path != skip {
			if err := remove(entry.path); err != nil {
				return freed, count, err
			}
			x.ll.Remove(elem)
			delete(x.items, entry.path)
			x.total -= entry.size
			freed += entry.size
			count++
		}

		elem = next
	}

	return freed, count, nil
}

// size returns the recorded size for path.
func (x *lruIndex) size(path string) (uint64, bool) {
	elem, ok := x.items[path]
	if !ok {
		return 0, false
	}
	return elem.Value.(*indexEntry).size, true
}

// oldestFirst returns tracked paths in eviction order.
func (x *lruIndex) oldestFirst() []*indexEntry {
	entries := make([]*indexEntry, 0, x.ll.Len())
	for elem := x.ll.Front(); elem != nil; elem = elem.Next() {
		entries = append(entries, elem.Value.(*indexEntry))
	}
	return entries
}

func (x *lruIndex) len() int {
	return x.ll.Len()
}
