package testutils

import (
	"context"

	"github.com/papercomputeco/docent/pkg/corpus"
)

// MockVectorDriver is a test vector driver
type MockVectorDriver struct {
	// Added collects everything passed to Add
	Added []corpus.Chunk

	// Results are returned by Query after version filtering
	Results []corpus.Candidate

	// Err is returned by Query when set
	Err error

	// QueryCalls counts Query invocations; LastLimit and LastVersion
	// record the most recent call's arguments
	QueryCalls  int
	LastLimit   int
	LastVersion string
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{}
}

func (m *MockVectorDriver) Add(_ context.Context, chunks []corpus.Chunk) error {
	m.Added = append(m.Added, chunks...)
	return nil
}

func (m *MockVectorDriver) Query(_ context.Context, _ []float32, version string, limit int) ([]corpus.Candidate, error) {
	m.QueryCalls++
	m.LastLimit = limit
	m.LastVersion = version

	if m.Err != nil {
		return nil, m.Err
	}

	// Honor the version authority constraint the way a real store does.
	matched := make([]corpus.Candidate, 0, len(m.Results))
	for _, res := range m.Results {
		if res.Version == version {
			matched = append(matched, res)
		}
	}

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *MockVectorDriver) Close() error {
	return nil
}
