//go:build !production

package testutil

import "github.com/stretchr/testify/mock"

// MockServer 实现 types.ServerInterface，只需为 IsMaintenanceMode 设定返回值
type MockServer struct {
	mock.Mock
}

func (m *MockServer) IsMaintenanceMode() bool {
	return m.Called().Bool(0)
}
