package mqtt

import (
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/dispatchboard/core/model"
	coremqtt "github.com/kilianp07/dispatchboard/core/mqtt"
)

// Client mirrors the core mqtt.Client interface.
type Client = coremqtt.Client

// MockPublisher is an in-memory Client used in tests and dry runs.
type MockPublisher struct {
	Operations []*model.DispatchOperation
	// FailSend makes SendOperation fail.
	FailSend bool
	// Reject lists operation descriptions the backend refuses.
	Reject map[string]bool

	mu      sync.Mutex
	results map[string]bool
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{Reject: make(map[string]bool), results: make(map[string]bool)}
}

// SendOperation records the operation or fails when configured to.
func (m *MockPublisher) SendOperation(op *model.DispatchOperation) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSend {
		return "", fmt.Errorf("publish failed")
	}
	m.Operations = append(m.Operations, op)
	commandID := fmt.Sprintf("cmd-%d", len(m.Operations))
	m.results[commandID] = !m.Reject[op.Description]
	return commandID, nil
}

// WaitForAck answers immediately with the stored result.
func (m *MockPublisher) WaitForAck(commandID string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	ok, exists := m.results[commandID]
	m.mu.Unlock()
	if !exists {
		return false, fmt.Errorf("unknown command")
	}
	if !ok {
		return false, coremqtt.ErrRejected
	}
	return true, nil
}

// Sent returns the number of operations published so far.
func (m *MockPublisher) Sent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Operations)
}
