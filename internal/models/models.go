// Package models holds the request, record and response types shared by the
// deletion service, its collaborators and the transport layer.
package models

import "errors"

// DeletionRequest is the inbound body of an account deletion call.
type DeletionRequest struct {
	Email string `json:"email" validate:"required"`
}

// DependentRecord identifies one conversation record owned by a user.
// The attribute names its keys are stored under are configured per store.
type DependentRecord struct {
	PrimaryKey   string
	SecondaryKey string
}

// DeletionResult is the outcome of a deletion call before it is rendered
// into a transport response.
type DeletionResult struct {
	StatusCode int
	Message    string
}

// MessageBody is the JSON body of every non-OPTIONS response.
type MessageBody struct {
	Message string `json:"message"`
}

// Response is a transport-neutral HTTP response: the HTTP server writes it
// to a ResponseWriter, the Lambda entry point converts it to a proxy response.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       string
}

// Request is a transport-neutral inbound call.
type Request struct {
	Method string
	Body   []byte
}

const (
	StorageTypeUnknown = iota
	StorageTypeDynamoDB
	StorageTypePostgresql
	StorageTypeMemory
)

const (
	IdentityTypeUnknown = iota
	IdentityTypeCognito
	IdentityTypeMemory
)

const (
	MessageDeleted        = "User and associated data deleted successfully"
	MessageEmailRequired  = "Email is required"
	MessageUserNotFound   = "User not found"
	MessageInvalidPayload = "Invalid request body"
)

var (
	// ErrInvalidRequest marks a missing or malformed deletion request.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUserNotFound is returned by identity providers when the account
	// does not exist.
	ErrUserNotFound = errors.New("user not found")
)
