package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	apperrors "agent-neo/backend/pkg/errors"
	"agent-neo/backend/pkg/logger"
)

const constraintViolationCode = "Neo.ClientError.Schema.ConstraintValidationFailed"

// Credentials identify the graph store and the logical database to use.
type Credentials struct {
	URI      string
	Username string
	Password string
	Database string
}

// Executor runs one managed transaction per call.
type Executor interface {
	ExecuteRead(ctx context.Context, operation string, work neo4j.ManagedTransactionWork) (any, error)
	ExecuteWrite(ctx context.Context, operation string, work neo4j.ManagedTransactionWork) (any, error)
}

// Connection owns the pooled Neo4j driver.
type Connection struct {
	driver   neo4j.DriverWithContext
	uri      string
	database string
	logger   *zap.Logger
}

// NewConnection builds the driver and verifies connectivity and authentication before returning.
func NewConnection(ctx context.Context, creds Credentials) (*Connection, error) {
	switch {
	case creds.URI == "":
		return nil, apperrors.NewConfigMissingRequired("NEO4J_URI")
	case creds.Username == "":
		return nil, apperrors.NewConfigMissingRequired("NEO4J_USERNAME")
	case creds.Password == "":
		return nil, apperrors.NewConfigMissingRequired("NEO4J_PASSWORD")
	}

	log := logger.Named("graph")

	driver, err := neo4j.NewDriverWithContext(creds.URI, neo4j.BasicAuth(creds.Username, creds.Password, ""))
	if err != nil {
		return nil, apperrors.NewGraphConnectionFailed(creds.URI, err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, apperrors.NewGraphConnectionFailed(creds.URI, err)
	}
	if err := driver.VerifyAuthentication(ctx, nil); err != nil {
		_ = driver.Close(ctx)
		return nil, apperrors.NewGraphConnectionFailed(creds.URI, err)
	}

	log.Info("Connected to Neo4j",
		zap.String("uri", creds.URI),
		zap.String("database", creds.Database),
	)

	return &Connection{
		driver:   driver,
		uri:      creds.URI,
		database: creds.Database,
		logger:   log,
	}, nil
}

// Ping checks the server is reachable with the configured credentials
func (c *Connection) Ping(ctx context.Context) error {
	if err := c.driver.VerifyConnectivity(ctx); err != nil {
		return apperrors.NewGraphConnectionFailed(c.uri, err)
	}
	return nil
}

// Close releases every pooled connection
func (c *Connection) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

// ExecuteRead runs work in a read transaction on a session that is closed before returning.
func (c *Connection) ExecuteRead(ctx context.Context, operation string, work neo4j.ManagedTransactionWork) (any, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: c.database,
	})
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, work)
	if err != nil {
		return nil, c.classify(operation, err)
	}
	return out, nil
}

// ExecuteWrite runs work in a write transaction on a session that is closed before returning.
func (c *Connection) ExecuteWrite(ctx context.Context, operation string, work neo4j.ManagedTransactionWork) (any, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: c.database,
	})
	defer session.Close(ctx)

	out, err := session.ExecuteWrite(ctx, work)
	if err != nil {
		return nil, c.classify(operation, err)
	}
	return out, nil
}

func (c *Connection) classify(operation string, err error) error {
	classified := classifyError(c.uri, operation, err)
	c.logger.Warn("Graph operation failed",
		zap.String("operation", operation),
		zap.Error(err),
	)
	return classified
}

// classifyError maps driver errors onto the application taxonomy.
func classifyError(uri, operation string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return apperrors.NewContextCancelled(operation, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewContextCancelled(operation, err)
	}

	var neoErr *neo4j.Neo4jError
	if errors.As(err, &neoErr) && neoErr.Code == constraintViolationCode {
		return apperrors.NewGraphConstraintViolation(operation, neoErr.Code, err)
	}

	var limit *neo4j.TransactionExecutionLimit
	if neo4j.IsConnectivityError(err) || errors.As(err, &limit) {
		return apperrors.NewGraphConnectionFailed(uri, fmt.Errorf("%s: %w", operation, err))
	}

	return apperrors.NewGraphQueryFailed(operation, err)
}
