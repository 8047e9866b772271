package repo

import (
	"net/http"
	"reflect"

	"github.com/golang/mock/gomock"
)

// MockHTTPDoer is a hand-written stand-in for what `mockgen` would
// generate for HTTPDoer; there's no `go generate` step in this module,
// so it's kept here instead of under internal/mocks.
type MockHTTPDoer struct {
	ctrl     *gomock.Controller
	recorder *MockHTTPDoerMockRecorder
}

type MockHTTPDoerMockRecorder struct {
	mock *MockHTTPDoer
}

func NewMockHTTPDoer(ctrl *gomock.Controller) *MockHTTPDoer {
	mock := &MockHTTPDoer{ctrl: ctrl}
	mock.recorder = &MockHTTPDoerMockRecorder{mock: mock}
	return mock
}

func (m *MockHTTPDoer) EXPECT() *MockHTTPDoerMockRecorder {
	return m.recorder
}

func (m *MockHTTPDoer) Do(req *http.Request) (*http.Response, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Do", req)
	resp, _ := ret[0].(*http.Response)
	err, _ := ret[1].(error)
	return resp, err
}

func (mr *MockHTTPDoerMockRecorder) Do(req interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Do", reflect.TypeOf((*MockHTTPDoer)(nil).Do), req)
}
