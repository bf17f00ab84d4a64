package routefilter

import (
	"github.com/hupe1980/routefilter/routing"
)

// fullAssignment builds a complete solution snapshot: routes[v] lists the
// regular nodes served by vehicle v in order; every regular node not on a
// route is a self-loop.
func fullAssignment(m *routing.Model, routes [][]int) *routing.Assignment {
	assignment := routing.NewAssignment()
	onRoute := make([]bool, m.Size())
	for v, route := range routes {
		prev := m.Start(v)
		for _, node := range route {
			assignment.Add(prev, int64(node))
			onRoute[node] = true
			prev = node
		}
		assignment.Add(prev, int64(m.End(v)))
	}
	for node := 0; node < m.Size(); node++ {
		if !m.IsStart(node) && !onRoute[node] {
			assignment.Add(node, int64(node))
		}
	}
	return assignment
}

func synchronize(f Filter, m *routing.Model, routes [][]int) {
	f.Synchronize(fullAssignment(m, routes), routing.NewAssignment())
}

// recordingPathFilter captures the skeleton's hook invocations.
type recordingPathFilter struct {
	*BasePathFilter
	NoopPathHooks

	acceptPathCalls [][3]int
	initializeCalls int
	finalizeCalls   int
	syncedStarts    []int
	rejectPathStart int
}

func newRecordingPathFilter(m *routing.Model) *recordingPathFilter {
	f := &recordingPathFilter{rejectPathStart: unassigned}
	f.BasePathFilter = NewBasePathFilter("recordingPathFilter", m, f)
	return f
}

func (f *recordingPathFilter) InitializeAcceptPath() bool {
	f.initializeCalls++
	f.acceptPathCalls = f.acceptPathCalls[:0]
	return true
}

func (f *recordingPathFilter) AcceptPath(pathStart, chainStart, chainEnd int) bool {
	f.acceptPathCalls = append(f.acceptPathCalls, [3]int{pathStart, chainStart, chainEnd})
	return pathStart != f.rejectPathStart
}

func (f *recordingPathFilter) FinalizeAcceptPath(_, _ int64) bool {
	f.finalizeCalls++
	return true
}

func (f *recordingPathFilter) OnSynchronizePathFromStart(start int) {
	f.syncedStarts = append(f.syncedStarts, start)
}
