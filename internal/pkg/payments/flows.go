package payments

import "sync"

// FlowRegistry tracks live payment attempts by payment id so that status
// and cancel requests from later HTTP calls can reach the orchestrator.
type FlowRegistry struct {
	mu    sync.Mutex
	flows map[uint]*Orchestrator
}

// NewFlowRegistry creates an empty registry.
func NewFlowRegistry() *FlowRegistry {
	return &FlowRegistry{flows: make(map[uint]*Orchestrator)}
}

// Put registers a running attempt under its payment id.
func (r *FlowRegistry) Put(paymentID uint, o *Orchestrator) {
	r.mu.Lock()
	r.flows[paymentID] = o
	r.mu.Unlock()
}

// Get returns the attempt for a payment id.
func (r *FlowRegistry) Get(paymentID uint) (*Orchestrator, bool) {
	r.mu.Lock()
	o, ok := r.flows[paymentID]
	r.mu.Unlock()
	return o, ok
}

// Remove forgets a finished attempt.
func (r *FlowRegistry) Remove(paymentID uint) {
	r.mu.Lock()
	delete(r.flows, paymentID)
	r.mu.Unlock()
}
