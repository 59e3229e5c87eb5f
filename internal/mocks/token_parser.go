package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/dtroode/cipherroom/internal/model"
)

// TokenParser is a mock of the identity token parser used by the relay and the client session.
type TokenParser struct {
	mock.Mock
}

func (m *TokenParser) ParseIdentityToken(token string) (model.Identity, error) {
	args := m.Called(token)
	return args.Get(0).(model.Identity), args.Error(1)
}

func NewTokenParser(t interface {
	mock.TestingT
	Cleanup(func())
}) *TokenParser {
	m := &TokenParser{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
