package slowtable

import (
	"fmt"

	"github.com/lemon-mint/lemonkv/types"
)

// Identity maps a key to its bucket by plain modulo over its unsigned bits,
// so key k and k+BucketCount always share a chain.
func Identity(key int32) uint32 {
	return uint32(key)
}

// NewTable returns a table with the given number of buckets. A nil hash
// selects Identity.
func NewTable(hash func(int32) uint32, buckets int) *Table {
	if buckets <= 0 {
		panic(fmt.Sprintf("slowtable: invalid bucket count %d", buckets))
	}
	if hash == nil {
		hash = Identity
	}
	t := &Table{
		entries: make([]value, buckets),
		hash:    hash,
	}
	t.itempool.New = func() interface{} {
		return new(item)
	}
	return t
}

// Buckets returns the number of chains.
func (t *Table) Buckets() int {
	return len(t.entries)
}

// BucketIndex returns the chain key belongs to, always in [0, Buckets()).
func (t *Table) BucketIndex(key int32) int {
	return int(t.hash(key) % uint32(len(t.entries)))
}

// Len returns the number of entries across all buckets.
func (t *Table) Len() int {
	return int(t.count)
}

// BucketLen returns the number of entries chained in bucket n.
func (t *Table) BucketLen(n int) int {
	return int(t.entries[n].size)
}

// Insert appends e to the end of bucket n. It does not check for an
// existing entry with the same key.
func (t *Table) Insert(n int, e types.Entry) {
	b := &t.entries[n]
	it := t.itempool.Get().(*item)
	it.entry = e
	it.next = nil
	if b.tail == nil {
		b.next = it
	} else {
		b.tail.next = it
	}
	b.tail = it
	b.size++
	t.count++
}

// ForEach visits bucket n in chain order until fn returns false.
func (t *Table) ForEach(n int, fn func(e types.Entry) bool) {
	for it := t.entries[n].next; it != nil; it = it.next {
		if !fn(it.entry) {
			return
		}
	}
}

// Update calls fn on the first entry of bucket n for which match returns
// true, letting fn modify it in place. The key must not be changed. It
// reports whether an entry matched.
func (t *Table) Update(n int, match func(e types.Entry) bool, fn func(e *types.Entry)) bool {
	for it := t.entries[n].next; it != nil; it = it.next {
		if match(it.entry) {
			fn(&it.entry)
			return true
		}
	}
	return false
}

// RemoveMatching unlinks every entry of bucket n for which match returns
// true and returns them in chain order.
func (t *Table) RemoveMatching(n int, match func(e types.Entry) bool) []types.Entry {
	b := &t.entries[n]
	var removed []types.Entry
	var prev *item
	it := b.next
	for it != nil {
		next := it.next
		if !match(it.entry) {
			prev = it
			it = next
			continue
		}
		removed = append(removed, it.entry)
		if prev == nil {
			b.next = next
		} else {
			prev.next = next
		}
		if b.tail == it {
			b.tail = prev
		}
		b.size--
		t.count--
		t.release(it)
		it = next
	}
	return removed
}

// Reset frees every entry, calling fn (if non-nil) for each one first.
func (t *Table) Reset(fn func(n int, e types.Entry)) int {
	freed := 0
	for n := range t.entries {
		b := &t.entries[n]
		it := b.next
		for it != nil {
			next := it.next
			if fn != nil {
				fn(n, it.entry)
			}
			t.release(it)
			freed++
			it = next
		}
		*b = value{}
	}
	t.count = 0
	return freed
}

func (t *Table) release(it *item) {
	it.next = nil
	it.entry = types.Entry{}
	t.itempool.Put(it)
}

// All returns every entry of bucket n in chain order.
func (t *Table) All(n int) []types.Entry {
	out := make([]types.Entry, 0, t.entries[n].size)
	t.ForEach(n, func(e types.Entry) bool {
		out = append(out, e)
		return true
	})
	return out
}

// Always matches every entry; pass it to RemoveMatching to drain a bucket.
func Always(types.Entry) bool {
	return true
}

// KeyIs returns a matcher for entries with the given key.
func KeyIs(key int32) func(types.Entry) bool {
	return func(e types.Entry) bool {
		return e.Key == key
	}
}
