//	mockgen -source=internal/usecase/interfaces.go -destination=internal/usecase/mocks/mock_provider.go -package=mocks RailProvider
//

// Package mocks is a generated GoMock package.
package mocks

import (
	context "context"
	reflect "reflect"

	gomock "go.uber.org/mock/gomock"

	domain "github.com/fluxpay/pspcore/internal/domain"
)

// MockRailProvider is a mock of RailProvider interface.
type MockRailProvider struct {
	ctrl     *gomock.Controller
	recorder *MockRailProviderMockRecorder
	isgomock struct{}
}

// MockRailProviderMockRecorder is the mock recorder for MockRailProvider.
type MockRailProviderMockRecorder struct {
	mock *MockRailProvider
}

// NewMockRailProvider creates a new mock instance.
func NewMockRailProvider(ctrl *gomock.Controller) *MockRailProvider {
	mock := &MockRailProvider{ctrl: ctrl}
	mock.recorder = &MockRailProviderMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockRailProvider) EXPECT() *MockRailProviderMockRecorder {
	return m.recorder
}

// Name mocks base method.
func (m *MockRailProvider) Name() string {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Name")
	ret0, _ := ret[0].(string)
	return ret0
}

// Name indicates an expected call of Name.
func (mr *MockRailProviderMockRecorder) Name() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Name", reflect.TypeOf((*MockRailProvider)(nil).Name))
}

// Rail mocks base method.
func (m *MockRailProvider) Rail() domain.Rail {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Rail")
	ret0, _ := ret[0].(domain.Rail)
	return ret0
}

// Rail indicates an expected call of Rail.
func (mr *MockRailProviderMockRecorder) Rail() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Rail", reflect.TypeOf((*MockRailProvider)(nil).Rail))
}

// Submit mocks base method.
func (m *MockRailProvider) Submit(ctx context.Context, instr *domain.PaymentInstruction) (string, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Submit", ctx, instr)
	ret0, _ := ret[0].(string)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Submit indicates an expected call of Submit.
func (mr *MockRailProviderMockRecorder) Submit(ctx, instr any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Submit", reflect.TypeOf((*MockRailProvider)(nil).Submit), ctx, instr)
}

// PollStatus mocks base method.
func (m *MockRailProvider) PollStatus(ctx context.Context, providerRef string) (domain.InstructionStatus, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "PollStatus", ctx, providerRef)
	ret0, _ := ret[0].(domain.InstructionStatus)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// PollStatus indicates an expected call of PollStatus.
func (mr *MockRailProviderMockRecorder) PollStatus(ctx, providerRef any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "PollStatus", reflect.TypeOf((*MockRailProvider)(nil).PollStatus), ctx, providerRef)
}
