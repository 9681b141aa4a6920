package main

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/userpurge/internal/cors"
	"github.com/patric-chuzhbe/userpurge/internal/mocks"
	"github.com/patric-chuzhbe/userpurge/internal/models"
	"github.com/patric-chuzhbe/userpurge/internal/router"
	"github.com/patric-chuzhbe/userpurge/internal/service"
)

func newTestHandler() (proxyHandler, *mocks.IdentityMock) {
	identity := &mocks.IdentityMock{}
	users := &mocks.UserStoreMock{}
	conversations := &mocks.ConversationStoreMock{}

	users.On("DeleteUser", mock.Anything, mock.Anything).Return(nil)
	conversations.On("FindByOwner", mock.Anything, mock.Anything).Return([]models.DependentRecord{}, nil)

	svc := service.New(identity, users, conversations)
	return newHandler(router.NewRouter(svc, cors.WithFallback(nil))), identity
}

func TestProxyHandlerSuccess(t *testing.T) {
	handler, identity := newTestHandler()
	identity.On("DeleteUser", mock.Anything, "jane@example.com").Return(nil)

	resp, err := handler(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Body:       `{"email":"jane@example.com"}`,
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"message":"User and associated data deleted successfully"}`, resp.Body)
	assert.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])
}

func TestProxyHandlerBase64Body(t *testing.T) {
	handler, identity := newTestHandler()
	identity.On("DeleteUser", mock.Anything, "jane@example.com").Return(models.ErrUserNotFound)

	resp, err := handler(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:      http.MethodPost,
		Body:            base64.StdEncoding.EncodeToString([]byte(`{"email":"jane@example.com"}`)),
		IsBase64Encoded: true,
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProxyHandlerOptions(t *testing.T) {
	handler, identity := newTestHandler()

	resp, err := handler(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodOptions})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Body)
	assert.Equal(t, cors.FallbackHeaders(), resp.Headers)
	identity.AssertNotCalled(t, "DeleteUser", mock.Anything, mock.Anything)
}

func TestProxyHandlerUpstreamFailure(t *testing.T) {
	handler, identity := newTestHandler()
	identity.On("DeleteUser", mock.Anything, "jane@example.com").Return(errors.New("InternalErrorException"))

	resp, err := handler(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Body:       `{"email":"jane@example.com"}`,
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"message":"InternalErrorException"}`, resp.Body)
}
