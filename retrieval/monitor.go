package retrieval

import (
	"github.com/jpvia/normabot/core"
	"github.com/jpvia/normabot/index"
)

// Monitor provides hooks to observe the retrieval process.
// Implement this interface to track intermediate steps during a search.
type Monitor interface {
	Start(query core.Query)
	AfterVectorSearch(hits []index.Hit)
	AfterLexicalSearch(hits []index.Hit)
	AfterFusion(candidates []core.RetrievalCandidate)
	Finish(candidates []core.RetrievalCandidate)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ core.Query)                      {}
func (n *noopMonitor) AfterVectorSearch(_ []index.Hit)         {}
func (n *noopMonitor) AfterLexicalSearch(_ []index.Hit)        {}
func (n *noopMonitor) AfterFusion(_ []core.RetrievalCandidate) {}
func (n *noopMonitor) Finish(_ []core.RetrievalCandidate)      {}
