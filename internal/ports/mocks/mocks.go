// Package mocks holds testify mocks for the engine ports.
package mocks

import (
	"context"
	"time"

	"github.com/bnema/ambient-narrator/internal/domain"
	"github.com/bnema/ambient-narrator/internal/ports"
	"github.com/stretchr/testify/mock"
)

type MockGenerator struct {
	mock.Mock
}

var _ ports.Generator = (*MockGenerator)(nil)

func NewMockGenerator(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockGenerator {
	m := &MockGenerator{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockGenerator) Generate(ctx context.Context, systemText, userText string, maxOutputLength int) (string, error) {
	args := m.Called(ctx, systemText, userText, maxOutputLength)
	return args.String(0), args.Error(1)
}

type MockDisplay struct {
	mock.Mock
}

var _ ports.Display = (*MockDisplay)(nil)

func NewMockDisplay(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockDisplay {
	m := &MockDisplay{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockDisplay) SetPersistentSlot(text, token string) error {
	return m.Called(text, token).Error(0)
}

func (m *MockDisplay) RaiseNotification(text, title string, duration time.Duration) error {
	return m.Called(text, title, duration).Error(0)
}

type MockSessionRepository struct {
	mock.Mock
}

var _ ports.SessionRepository = (*MockSessionRepository)(nil)

func NewMockSessionRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSessionRepository {
	m := &MockSessionRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockSessionRepository) Load(ctx context.Context, conversationID string) (domain.PersistedAwareness, error) {
	args := m.Called(ctx, conversationID)
	return args.Get(0).(domain.PersistedAwareness), args.Error(1)
}

func (m *MockSessionRepository) Save(ctx context.Context, awareness domain.PersistedAwareness) error {
	return m.Called(ctx, awareness).Error(0)
}
