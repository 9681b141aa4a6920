package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/userpurge/internal/cors"
	"github.com/patric-chuzhbe/userpurge/internal/db/memorystorage"
	"github.com/patric-chuzhbe/userpurge/internal/identity"
	"github.com/patric-chuzhbe/userpurge/internal/mocks"
	"github.com/patric-chuzhbe/userpurge/internal/models"
	"github.com/patric-chuzhbe/userpurge/internal/service"
)

const testEmail = "jane@example.com"

type deleterMock struct {
	mock.Mock
}

func (m *deleterMock) DeleteAccount(ctx context.Context, req models.DeletionRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

type fixture struct {
	identity *identity.Memory
	storage  *memorystorage.MemoryStorage
	srv      *httptest.Server
}

func newFixture(t *testing.T, headers cors.HeaderProvider) *fixture {
	t.Helper()

	f := &fixture{
		identity: identity.NewMemory(),
		storage:  memorystorage.New(),
	}
	svc := service.New(f.identity, f.storage, f.storage)
	f.srv = httptest.NewServer(New(svc, cors.WithFallback(headers), WithPinger(f.storage)))
	t.Cleanup(f.srv.Close)

	return f
}

func (f *fixture) seed(t *testing.T, conversations int) {
	t.Helper()
	ctx := context.Background()

	f.identity.AddUser(testEmail)
	require.NoError(t, f.storage.SaveUser(ctx, testEmail))
	for i := 0; i < conversations; i++ {
		require.NoError(t, f.storage.SaveRecord(ctx, testEmail, models.DependentRecord{
			PrimaryKey:   fmt.Sprintf("c%d", i+1),
			SecondaryKey: fmt.Sprintf("r%d", i+1),
		}))
	}
}

func TestDeleteAccountEndpoint(t *testing.T) {
	type tExpectedResponse struct {
		code int
		body string
	}
	type tTestCase struct {
		name             string
		path             string
		method           string
		body             string
		conversations    int
		seed             bool
		expectedResponse tExpectedResponse
	}
	testCases := []tTestCase{
		{
			name:          "positive_without_conversations",
			path:          "/",
			method:        http.MethodPost,
			body:          `{"email":"jane@example.com"}`,
			seed:          true,
			conversations: 0,
			expectedResponse: tExpectedResponse{
				http.StatusOK,
				`{"message":"User and associated data deleted successfully"}`,
			},
		},
		{
			name:          "positive_with_conversations",
			path:          "/account/delete",
			method:        http.MethodPost,
			body:          `{"email":"jane@example.com"}`,
			seed:          true,
			conversations: 3,
			expectedResponse: tExpectedResponse{
				http.StatusOK,
				`{"message":"User and associated data deleted successfully"}`,
			},
		},
		{
			name:          "delete_alias",
			path:          "/account",
			method:        http.MethodDelete,
			body:          `{"email":"jane@example.com"}`,
			seed:          true,
			conversations: 1,
			expectedResponse: tExpectedResponse{
				http.StatusOK,
				`{"message":"User and associated data deleted successfully"}`,
			},
		},
		{
			name:   "missing_email",
			path:   "/",
			method: http.MethodPost,
			body:   `{}`,
			seed:   true,
			expectedResponse: tExpectedResponse{
				http.StatusBadRequest,
				`{"message":"Email is required"}`,
			},
		},
		{
			name:   "malformed_json",
			path:   "/",
			method: http.MethodPost,
			body:   `{"email":`,
			seed:   true,
			expectedResponse: tExpectedResponse{
				http.StatusBadRequest,
				`{"message":"Invalid request body"}`,
			},
		},
		{
			name:   "unknown_user",
			path:   "/",
			method: http.MethodPost,
			body:   `{"email":"jane@example.com"}`,
			seed:   false,
			expectedResponse: tExpectedResponse{
				http.StatusNotFound,
				`{"message":"User not found"}`,
			},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			f := newFixture(t, nil)
			if testCase.seed {
				f.seed(t, testCase.conversations)
			}

			resp, err := resty.New().R().
				SetHeader("Content-Type", "application/json").
				SetBody(testCase.body).
				Execute(testCase.method, f.srv.URL+testCase.path)
			require.NoError(t, err)

			assert.Equal(t, testCase.expectedResponse.code, resp.StatusCode())
			assert.JSONEq(t, testCase.expectedResponse.body, string(resp.Body()))
			assert.Equal(t, "application/json", resp.Header().Get("Content-Type"))
			assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))

			if testCase.expectedResponse.code != http.StatusOK {
				return
			}
			exists, err := f.storage.HasUser(context.Background(), testEmail)
			require.NoError(t, err)
			assert.False(t, exists)
			assert.False(t, f.identity.HasUser(testEmail))

			records, err := f.storage.FindByOwner(context.Background(), testEmail)
			require.NoError(t, err)
			assert.Empty(t, records)
		})
	}
}

func TestDeleteAccountPartialConversationFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, 3)
	f.storage.FailDeletesOf(models.DependentRecord{PrimaryKey: "c2", SecondaryKey: "r2"}, errors.New("throttled"))

	resp, err := resty.New().R().
		SetBody(`{"email":"jane@example.com"}`).
		Post(f.srv.URL + "/")
	require.NoError(t, err)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode())
	assert.JSONEq(t, `{"message":"deleting conversation c2: throttled"}`, string(resp.Body()))

	records, err := f.storage.FindByOwner(context.Background(), testEmail)
	require.NoError(t, err)
	assert.Equal(t, []models.DependentRecord{{PrimaryKey: "c2", SecondaryKey: "r2"}}, records)
	assert.False(t, f.identity.HasUser(testEmail))
}

func TestOptionsPreflight(t *testing.T) {
	negotiated := map[string]string{
		"Access-Control-Allow-Origin":  "https://app.example.com",
		"Access-Control-Allow-Methods": "OPTIONS, POST, DELETE",
	}

	provider := &mocks.HeaderProviderMock{}
	provider.On("Headers", mock.Anything).Return(negotiated, nil)
	f := newFixture(t, provider)

	resp, err := resty.New().R().Options(f.srv.URL + "/")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Empty(t, resp.Body())
	assert.Equal(t, "https://app.example.com", resp.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "OPTIONS, POST, DELETE", resp.Header().Get("Access-Control-Allow-Methods"))
	provider.AssertExpectations(t)
}

func TestOptionsPreflightFallback(t *testing.T) {
	provider := &mocks.HeaderProviderMock{}
	provider.On("Headers", mock.Anything).Return(nil, errors.New("function not found"))

	deleter := &deleterMock{}
	r := NewRouter(deleter, cors.WithFallback(provider))

	resp := r.Handle(context.Background(), models.Request{Method: http.MethodOptions})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Body)
	assert.Equal(t, cors.FallbackHeaders(), resp.Headers)
	deleter.AssertNotCalled(t, "DeleteAccount", mock.Anything, mock.Anything)
}

func TestHandleUpstreamFailureMessage(t *testing.T) {
	deleter := &deleterMock{}
	deleter.On("DeleteAccount", mock.Anything, models.DeletionRequest{Email: testEmail}).
		Return(errors.New("AccessDeniedException: not authorized"))
	r := NewRouter(deleter, cors.WithFallback(nil))

	resp := r.Handle(context.Background(), models.Request{
		Method: http.MethodPost,
		Body:   []byte(`{"email":"jane@example.com"}`),
	})

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"message":"AccessDeniedException: not authorized"}`, resp.Body)
	assert.Equal(t, "true", resp.Headers["Access-Control-Allow-Credentials"])
}

func TestHandleMissingEmailSkipsDeleter(t *testing.T) {
	deleter := &deleterMock{}
	r := NewRouter(deleter, cors.WithFallback(nil))

	resp := r.Handle(context.Background(), models.Request{
		Method: http.MethodPost,
		Body:   []byte(`{"email":""}`),
	})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	deleter.AssertNotCalled(t, "DeleteAccount", mock.Anything, mock.Anything)
}

func TestResultFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want models.DeletionResult
	}{
		{"success", nil, models.DeletionResult{StatusCode: http.StatusOK, Message: models.MessageDeleted}},
		{"invalid", models.ErrInvalidRequest, models.DeletionResult{StatusCode: http.StatusBadRequest, Message: models.MessageEmailRequired}},
		{"not_found_wrapped", fmt.Errorf("%w: User does not exist.", models.ErrUserNotFound), models.DeletionResult{StatusCode: http.StatusNotFound, Message: models.MessageUserNotFound}},
		{"upstream", errors.New("boom"), models.DeletionResult{StatusCode: http.StatusInternalServerError, Message: "boom"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resultFromError(tt.err))
		})
	}
}

func TestPing(t *testing.T) {
	f := newFixture(t, nil)

	resp, err := resty.New().R().Get(f.srv.URL + "/ping")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
}
