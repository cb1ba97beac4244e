package storage

// Iterator is a single-pass iterator over all pairs of a Store, merging
// one cursor per partition. Exhausted cursors are closed as soon as they
// run out, so each underlying cursor is released exactly once.
type Iterator struct {
	cursors []Cursor
	current Cursor
	err     error
	closed  bool
}

func newIterator(cursors []Cursor) *Iterator {
	return &Iterator{cursors: cursors}
}

// Next advances to the next pair. It returns false once every partition
// has been exhausted or the iterator was closed.
func (it *Iterator) Next() bool {
	if it.closed {
		return false
	}
	for {
		if it.current == nil {
			if len(it.cursors) == 0 {
				return false
			}
			it.current = it.cursors[0]
			it.cursors = it.cursors[1:]
			if it.current == nil {
				continue
			}
		}

		if it.current.Next() {
			return true
		}

		it.release(it.current)
		it.current = nil
	}
}

// release closes an exhausted cursor and records the first error seen.
func (it *Iterator) release(c Cursor) {
	if err := c.Err(); err != nil && it.err == nil {
		it.err = err
	}
	if err := c.Close(); err != nil && it.err == nil {
		it.err = err
	}
}

// Key returns the current key.
func (it *Iterator) Key() string {
	if it.current == nil {
		return ""
	}
	return string(it.current.Key())
}

// Value returns the current value.
func (it *Iterator) Value() string {
	if it.current == nil {
		return ""
	}
	return string(it.current.Value())
}

// Err returns the first error encountered by any partition cursor.
func (it *Iterator) Err() error {
	return it.err
}

// Close releases all cursors that have not been exhausted yet.
func (it *Iterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	if it.current != nil {
		it.release(it.current)
		it.current = nil
	}
	for _, c := range it.cursors {
		if c != nil {
			it.release(c)
		}
	}
	it.cursors = nil
	return it.err
}
