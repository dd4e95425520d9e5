package oracle

import "context"

// MockReranker is a configurable mock for testing oracle integration.
// Set RerankFunc to control behavior.
type MockReranker struct {
	// RerankFunc is called when Rerank is invoked. If nil, the offered order
	// is echoed back with full confidence.
	RerankFunc func(ctx context.Context, req *Request) (*Result, error)

	// RerankCalls counts invocations for verification.
	RerankCalls int
}

// NewMockReranker creates a mock with echo defaults.
func NewMockReranker() *MockReranker {
	return &MockReranker{}
}

// Rerank implements Reranker.
func (m *MockReranker) Rerank(ctx context.Context, req *Request) (*Result, error) {
	m.RerankCalls++
	if m.RerankFunc != nil {
		return m.RerankFunc(ctx, req)
	}

	result := &Result{Confidence: 1}
	for _, c := range req.Candidates {
		result.Rankings = append(result.Rankings, Ranking{CandidateID: c.ID})
	}
	return result, nil
}

// Reset clears call tracking.
func (m *MockReranker) Reset() {
	m.RerankCalls = 0
}

var _ Reranker = (*MockReranker)(nil)
