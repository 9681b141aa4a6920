// Package config loads the service configuration from defaults, an optional
// .env file, environment variables and command-line flags, in ascending
// order of priority, and validates the result.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config is the full set of settings of the account deletion service.
type Config struct {
	RunAddr  string `env:"SERVER_ADDRESS" validate:"hostname_port"`
	LogLevel string `env:"LOG_LEVEL" validate:"loglevel"`

	AWSRegion      string `env:"AWS_REGION" validate:"required"`
	AWSEndpointURL string `env:"AWS_ENDPOINT_URL" validate:"omitempty,url"`

	UserPoolID      string `env:"COGNITO_USER_POOL_ID" validate:"required"`
	IdentityBackend string `env:"IDENTITY_BACKEND" validate:"oneof=cognito memory"`

	StorageBackend string `env:"STORAGE_BACKEND" validate:"oneof=dynamodb postgres memory"`

	UsersTableName string `env:"USERS_TABLE_NAME" validate:"required"`
	UsersKeyName   string `env:"USERS_KEY_NAME" validate:"required"`

	ConversationsTableName      string `env:"CONVERSATIONS_TABLE_NAME" validate:"required"`
	ConversationsIndexName      string `env:"CONVERSATIONS_INDEX_NAME" validate:"required"`
	ConversationsOwnerAttribute string `env:"CONVERSATIONS_OWNER_ATTRIBUTE" validate:"required"`
	ConversationsPartitionKey   string `env:"CONVERSATIONS_PARTITION_KEY" validate:"required"`
	ConversationsSortKey        string `env:"CONVERSATIONS_SORT_KEY"`

	DatabaseDSN         string        `env:"DATABASE_DSN" validate:"required_if=StorageBackend postgres"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT"`
	MigrationsDir       string        `env:"MIGRATIONS_DIR" validate:"omitempty,dirpath"`

	CORSFunctionName string        `env:"CORS_FUNCTION_NAME"`
	CORSServiceURL   string        `env:"CORS_SERVICE_URL" validate:"omitempty,url"`
	CORSTimeout      time.Duration `env:"CORS_TIMEOUT"`

	MaxParallelDeletes int `env:"MAX_PARALLEL_DELETES" validate:"gte=0"`
}

// ErrMissingUserPoolID is returned by New when no identity pool is configured.
var ErrMissingUserPoolID = errors.New("COGNITO_USER_POOL_ID environment variable is required")

var defaultConfig = Config{
	RunAddr:                     ":8080",
	LogLevel:                    "info",
	AWSRegion:                   "us-east-1",
	IdentityBackend:             "cognito",
	StorageBackend:              "dynamodb",
	UsersTableName:              "Users",
	UsersKeyName:                "email",
	ConversationsTableName:      "Conversations",
	ConversationsIndexName:      "UserEmailIndex",
	ConversationsOwnerAttribute: "userEmail",
	ConversationsPartitionKey:   "conversationId",
	ConversationsSortKey:        "responseId",
	DBConnectionTimeout:         10 * time.Second,
	CORSTimeout:                 3 * time.Second,
}

// InitOption tunes how New gathers configuration.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
	disableDotEnv       bool
}

// WithDisableFlagsParsing skips command-line flags. Tests and the Lambda
// entry point use it.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// WithDisableDotEnv skips loading the .env file.
func WithDisableDotEnv(disableDotEnv bool) InitOption {
	return func(options *initOptions) {
		options.disableDotEnv = disableDotEnv
	}
}

func applyDefaults(values *Config, defaults Config) {
	*values = defaults
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	allowedLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	return allowedLogLevels[fieldLevel.Field().String()]
}

func (c *Config) validate() error {
	if c.UserPoolID == "" {
		return ErrMissingUserPoolID
	}

	validate := validator.New()
	if err := validate.RegisterValidation("loglevel", validateLogLevel); err != nil {
		return err
	}

	return validate.Struct(c)
}

func (c *Config) parseFlags(args []string) error {
	flags := flag.NewFlagSet("userpurge", flag.ContinueOnError)
	flags.StringVar(&c.RunAddr, "a", c.RunAddr, "address and port to run server")
	flags.StringVar(&c.LogLevel, "l", c.LogLevel, "logger level")
	flags.StringVar(&c.AWSRegion, "r", c.AWSRegion, "AWS region")
	flags.StringVar(&c.UserPoolID, "p", c.UserPoolID, "identity provider user pool id")
	flags.StringVar(&c.StorageBackend, "s", c.StorageBackend, "storage backend: dynamodb, postgres or memory")
	flags.StringVar(&c.DatabaseDSN, "d", c.DatabaseDSN, "a string with the database connection details")

	return flags.Parse(args)
}

// New builds and validates a Config. A missing user pool id is reported as
// ErrMissingUserPoolID.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	if !options.disableDotEnv {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("Unable to load .env file: %v", err)
		}
	}

	values := &Config{}
	applyDefaults(values, defaultConfig)

	if err := env.Parse(values); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if !options.disableFlagsParsing {
		if err := values.parseFlags(os.Args[1:]); err != nil {
			return nil, fmt.Errorf("parsing flags: %w", err)
		}
	}

	if err := values.validate(); err != nil {
		return nil, err
	}

	return values, nil
}
