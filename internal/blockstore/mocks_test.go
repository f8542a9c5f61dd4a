package blockstore

import (
	"github.com/stretchr/testify/mock"
)

// mockDevice is a [Device] whose behaviour is scripted per test.
type mockDevice struct {
	mock.Mock
}

func (m *mockDevice) ReadAt(p []byte, off int64) (int, error) {
	args := m.Called(p, off)

	if fill, ok := args.Get(2).([]byte); ok {
		copy(p, fill)
	}

	return args.Int(0), args.Error(1)
}

func (m *mockDevice) WriteAt(p []byte, off int64) (int, error) {
	args := m.Called(p, off)

	return args.Int(0), args.Error(1)
}

func (m *mockDevice) Size() (int64, error) {
	args := m.Called()

	return args.Get(0).(int64), args.Error(1) //nolint:forcetypeassert
}

func (m *mockDevice) Sync() error {
	return m.Called().Error(0)
}

func (m *mockDevice) Close() error {
	return m.Called().Error(0)
}
