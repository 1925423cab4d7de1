package gitclient

import (
	"context"

	"github.com/huangsam/repostats/schema"
	"github.com/stretchr/testify/mock"
)

// MockHost is a mock implementation of contract.Host for testing.
type MockHost struct {
	mock.Mock
}

var _ Host = &MockHost{} // Compile-time check

// Name implements the Host interface.
func (m *MockHost) Name() string {
	return m.Called().String(0)
}

// UserURL implements the Host interface.
func (m *MockHost) UserURL(user string) string {
	return m.Called(user).String(0)
}

// FetchInfo implements the Host interface.
func (m *MockHost) FetchInfo(ctx context.Context) (schema.RepoInfo, error) {
	args := m.Called(ctx)
	info, _ := args.Get(0).(schema.RepoInfo)
	return info, args.Error(1)
}

// FetchOverview implements the Host interface.
func (m *MockHost) FetchOverview(ctx context.Context) ([]schema.TicketSummary, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]schema.TicketSummary)
	return list, args.Error(1)
}

// FetchDetail implements the Host interface.
func (m *MockHost) FetchDetail(ctx context.Context, summary schema.TicketSummary) (schema.Ticket, error) {
	args := m.Called(ctx, summary)
	ticket, _ := args.Get(0).(schema.Ticket)
	return ticket, args.Error(1)
}
