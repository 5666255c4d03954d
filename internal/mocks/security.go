package mocks

import (
	"net"

	"github.com/stretchr/testify/mock"

	"github.com/dtroode/healping/internal/model"
)

// SecurityLayer mocks model.SecurityLayer.
type SecurityLayer struct {
	mock.Mock
}

// NewSecurityLayer creates a SecurityLayer whose expectations are asserted on cleanup.
func NewSecurityLayer(t interface {
	mock.TestingT
	Cleanup(func())
}) *SecurityLayer {
	m := &SecurityLayer{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *SecurityLayer) Listen(protocol, addr string) (net.Listener, error) {
	args := m.Called(protocol, addr)
	var ln net.Listener
	if v := args.Get(0); v != nil {
		ln = v.(net.Listener)
	}
	return ln, args.Error(1)
}

var _ model.SecurityLayer = (*SecurityLayer)(nil)
