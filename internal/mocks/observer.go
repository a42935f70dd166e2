package mocks

import (
	"github.com/brettbedarf/sandboxfs"
	"github.com/stretchr/testify/mock"
)

// MockObserver implements sandboxfs.Observer for testing across packages
type MockObserver struct {
	mock.Mock
}

func (m *MockObserver) Notify(ev sandboxfs.Event) {
	m.Called(ev)
}

// Events returns every event passed to Notify, in call order
func (m *MockObserver) Events() []sandboxfs.Event {
	events := make([]sandboxfs.Event, 0, len(m.Calls))
	for _, call := range m.Calls {
		if call.Method != "Notify" {
			continue
		}
		events = append(events, call.Arguments.Get(0).(sandboxfs.Event))
	}
	return events
}
