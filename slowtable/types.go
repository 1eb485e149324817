package slowtable

import (
	"sync"

	"github.com/lemon-mint/lemonkv/types"
)

type value struct {
	size int64

	next *item
	tail *item
}

type item struct {
	entry types.Entry
	next  *item
}

// Table is a fixed array of singly linked chains. It does no locking of its
// own: callers serialize access.
type Table struct {
	entries []value
	hash    func(int32) uint32
	count   int64

	itempool sync.Pool
}
