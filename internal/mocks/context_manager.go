// Package mocks holds testify mocks for the model interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dtroode/cipherroom/internal/model"
)

// ContextManager is a mock of model.ContextManager.
type ContextManager struct {
	mock.Mock
}

func (m *ContextManager) SetIdentityToContext(ctx context.Context, identity model.Identity) context.Context {
	args := m.Called(ctx, identity)
	if fn, ok := args.Get(0).(func(context.Context, model.Identity) context.Context); ok {
		return fn(ctx, identity)
	}
	return args.Get(0).(context.Context)
}

func (m *ContextManager) GetIdentityFromContext(ctx context.Context) (model.Identity, bool) {
	args := m.Called(ctx)
	return args.Get(0).(model.Identity), args.Bool(1)
}

// NewContextManager creates a ContextManager whose expectations are asserted on cleanup.
func NewContextManager(t interface {
	mock.TestingT
	Cleanup(func())
}) *ContextManager {
	m := &ContextManager{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
