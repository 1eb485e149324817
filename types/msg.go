package types

const (
	// BucketCount is the fixed number of hash buckets in a table.
	BucketCount = 256

	// DumpSlots is the number of entries a single dump can report.
	DumpSlots = 8
)

// Entry is one key/data pair. Data == 0 is never stored; writing it deletes Key.
type Entry struct {
	Key  int32
	Data int32
}

// sentinel is the {-1, -1} pair used for both misses and unused dump
// slots. It is unexported so no caller can reassign it.
var sentinel = Entry{Key: -1, Data: -1}

// NotFound returns the entry reported in place of a lookup miss.
func NotFound() Entry {
	return sentinel
}

// EmptySlot returns the value of an unused dump slot.
func EmptySlot() Entry {
	return sentinel
}

// IsTombstone reports whether writing e means deleting e.Key.
func (e Entry) IsTombstone() bool {
	return e.Data == 0
}

// DumpRecord is the fixed shape of a bucket dump: the bucket index and up to
// DumpSlots drained entries, tail slots set to EmptySlot.
type DumpRecord struct {
	N     int32
	Slots [DumpSlots]Entry
}

// NewDumpRecord returns a record for bucket n with every slot empty.
func NewDumpRecord(n int32) DumpRecord {
	d := DumpRecord{N: n}
	d.Clear()
	return d
}

// Clear resets every slot to EmptySlot.
func (d *DumpRecord) Clear() {
	for i := range d.Slots {
		d.Slots[i] = sentinel
	}
}

// Count returns the number of leading slots holding real entries.
func (d *DumpRecord) Count() int {
	for i := range d.Slots {
		if d.Slots[i] == sentinel {
			return i
		}
	}
	return DumpSlots
}

// Entries returns the filled slots in drain order.
func (d *DumpRecord) Entries() []Entry {
	return append([]Entry(nil), d.Slots[:d.Count()]...)
}
