// Package identity implements the identity-provider collaborator: removing
// an authentication account by username.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"

	"github.com/patric-chuzhbe/userpurge/internal/models"
)

const userNotFoundCode = "UserNotFoundException"

type cognitoAPI interface {
	AdminDeleteUser(
		ctx context.Context,
		params *cognitoidentityprovider.AdminDeleteUserInput,
		optFns ...func(*cognitoidentityprovider.Options),
	) (*cognitoidentityprovider.AdminDeleteUserOutput, error)
}

// Cognito deletes accounts from one Cognito user pool.
type Cognito struct {
	client     cognitoAPI
	userPoolID string
}

// NewCognito wraps an existing Cognito client.
func NewCognito(client cognitoAPI, userPoolID string) *Cognito {
	return &Cognito{
		client:     client,
		userPoolID: userPoolID,
	}
}

// NewCognitoFromConfig builds the Cognito client from cfg.
func NewCognitoFromConfig(cfg aws.Config, userPoolID string) *Cognito {
	return NewCognito(cognitoidentityprovider.NewFromConfig(cfg), userPoolID)
}

// DeleteUser removes the account named username. models.ErrUserNotFound is
// returned when the pool has no such account.
func (c *Cognito) DeleteUser(ctx context.Context, username string) error {
	_, err := c.client.AdminDeleteUser(ctx, &cognitoidentityprovider.AdminDeleteUserInput{
		UserPoolId: aws.String(c.userPoolID),
		Username:   aws.String(username),
	})
	if err == nil {
		return nil
	}

	if isUserNotFound(err) {
		return fmt.Errorf("%w: %s", models.ErrUserNotFound, err.Error())
	}

	return err
}

func isUserNotFound(err error) bool {
	var notFound *types.UserNotFoundException
	if errors.As(err, &notFound) {
		return true
	}

	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == userNotFoundCode
}
