// Package platform maps files read-only into memory for the matcher and the
// reconstructor.
package platform

// Mapping is a read-only view of a whole file. Data must not be modified or
// used after Close.
type Mapping struct {
	data   []byte
	unmap  func([]byte) error
	closed bool
}

// Data returns the file contents.
func (m *Mapping) Data() []byte { return m.data }

// Len returns the mapped length.
func (m *Mapping) Len() int { return len(m.data) }

// Close releases the mapping. It is safe to call more than once.
func (m *Mapping) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	data := m.data
	m.data = nil
	if m.unmap == nil || len(data) == 0 {
		return nil
	}
	return m.unmap(data)
}
