// Package router turns inbound calls into account deletions. Handle is
// transport neutral and shared by the HTTP server and the Lambda entry
// point; New mounts it on a chi router.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/patric-chuzhbe/userpurge/internal/logger"
	"github.com/patric-chuzhbe/userpurge/internal/models"
)

const maxBodyBytes = 1 << 20

type accountDeleter interface {
	DeleteAccount(ctx context.Context, req models.DeletionRequest) error
}

type headerSource interface {
	Headers(ctx context.Context) map[string]string
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Router holds the collaborators needed to serve a deletion call.
type Router struct {
	deleter  accountDeleter
	headers  headerSource
	pinger   pinger
	validate *validator.Validate
}

// Option tunes a Router.
type Option func(*Router)

// WithPinger makes GET /ping report the health of p.
func WithPinger(p pinger) Option {
	return func(r *Router) {
		r.pinger = p
	}
}

// NewRouter returns a Router without mounting any route.
func NewRouter(deleter accountDeleter, headers headerSource, opts ...Option) *Router {
	r := &Router{
		deleter:  deleter,
		headers:  headers,
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// New mounts the deletion endpoints on a chi router.
func New(deleter accountDeleter, headers headerSource, opts ...Option) *chi.Mux {
	return NewRouter(deleter, headers, opts...).Mux()
}

// Mux builds the chi router serving r.
func (r *Router) Mux() *chi.Mux {
	mux := chi.NewRouter()
	mux.Use(logger.WithLoggingHTTPMiddleware)

	for _, path := range []string{`/`, `/account/delete`} {
		mux.Post(path, r.ServeHTTP)
		mux.Options(path, r.ServeHTTP)
	}
	mux.Delete(`/account`, r.ServeHTTP)
	mux.Options(`/account`, r.ServeHTTP)
	mux.Get(`/ping`, r.GetPing)

	return mux
}

// ServeHTTP adapts Handle to net/http.
func (r *Router) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(res, req.Body, maxBodyBytes))
	if err != nil {
		body = nil
	}

	writeResponse(res, r.Handle(req.Context(), models.Request{
		Method: req.Method,
		Body:   body,
	}))
}

// GetPing answers 200 when the configured store is reachable.
func (r *Router) GetPing(res http.ResponseWriter, req *http.Request) {
	if r.pinger != nil {
		if err := r.pinger.Ping(req.Context()); err != nil {
			logger.Log.Errorw("ping failed", "error", err)
			res.WriteHeader(http.StatusInternalServerError)
			return
		}
	}
	res.WriteHeader(http.StatusOK)
}

// Handle serves one call. OPTIONS always yields 200 with CORS headers and an
// empty body; any other method is treated as a deletion request.
func (r *Router) Handle(ctx context.Context, req models.Request) models.Response {
	ctx = logger.WithDeletionID(ctx)
	headers := r.headers.Headers(ctx)

	if req.Method == http.MethodOptions {
		return models.Response{
			StatusCode: http.StatusOK,
			Headers:    headers,
		}
	}

	var deletion models.DeletionRequest
	if err := json.Unmarshal(req.Body, &deletion); err != nil {
		logger.FromContext(ctx).Infow("malformed deletion request", "error", err)
		return render(headers, models.DeletionResult{
			StatusCode: http.StatusBadRequest,
			Message:    models.MessageInvalidPayload,
		})
	}

	if err := r.validate.Struct(deletion); err != nil {
		return render(headers, resultFromError(models.ErrInvalidRequest))
	}

	return render(headers, resultFromError(r.deleter.DeleteAccount(ctx, deletion)))
}

func resultFromError(err error) models.DeletionResult {
	switch {
	case err == nil:
		return models.DeletionResult{StatusCode: http.StatusOK, Message: models.MessageDeleted}
	case errors.Is(err, models.ErrInvalidRequest):
		return models.DeletionResult{StatusCode: http.StatusBadRequest, Message: models.MessageEmailRequired}
	case errors.Is(err, models.ErrUserNotFound):
		return models.DeletionResult{StatusCode: http.StatusNotFound, Message: models.MessageUserNotFound}
	default:
		return models.DeletionResult{StatusCode: http.StatusInternalServerError, Message: err.Error()}
	}
}

func render(headers map[string]string, result models.DeletionResult) models.Response {
	if headers == nil {
		headers = map[string]string{}
	}
	headers["Content-Type"] = "application/json"

	body, err := json.Marshal(models.MessageBody{Message: result.Message})
	if err != nil {
		logger.Log.Errorw("encoding response", "error", err)
		return models.Response{StatusCode: http.StatusInternalServerError, Headers: headers}
	}

	return models.Response{
		StatusCode: result.StatusCode,
		Headers:    headers,
		Body:       string(body),
	}
}

func writeResponse(res http.ResponseWriter, resp models.Response) {
	for name, value := range resp.Headers {
		res.Header().Set(name, value)
	}
	res.WriteHeader(resp.StatusCode)

	if resp.Body == "" {
		return
	}
	if _, err := io.WriteString(res, resp.Body); err != nil {
		logger.Log.Errorw("writing response", "error", err)
	}
}
