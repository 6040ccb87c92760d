package zkcheck

// Mock implements Client for tests and dry runs.
type Mock struct {
	ReadyState bool
	Nodes      map[string][]string
	Err        error
}

// NewMock returns a ready Mock with no registrations.
func NewMock() *Mock {
	return &Mock{ReadyState: true, Nodes: map[string][]string{}}
}

func (m *Mock) Ready() bool {
	return m.ReadyState
}

func (m *Mock) Exists(path string) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}

	_, ok := m.Nodes[path]

	return ok, nil
}

func (m *Mock) Children(path string) ([]string, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	return m.Nodes[path], nil
}

func (m *Mock) Close() {}
