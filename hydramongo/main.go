// Package hydramongo resolves hydra associations from MongoDB collections.
package hydramongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lemmego/hydra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// =====================================
// Connection
// =====================================

// SupportedDrivers lists the driver names accepted by Open.
var SupportedDrivers = []string{"mongodb", "mongo"}

// Open connects to MongoDB and returns the configured database.
//
// Options["mongo"] may carry "max_pool_size", "min_pool_size",
// "max_idle_time" and "connect_timeout" (default 10s).
func Open(config hydra.Config) (*mongo.Database, error) {
	clientOpts := options.Client().ApplyURI(buildConnectionURI(config))

	timeout := 10 * time.Second
	if options, ok := config.Options["mongo"]; ok {
		if mongoOpts, ok := options.(map[string]interface{}); ok {
			applyClientOptions(clientOpts, mongoOpts)
			if t, ok := mongoOpts["connect_timeout"].(time.Duration); ok && t > 0 {
				timeout = t
				clientOpts.SetServerSelectionTimeout(t)
			}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, hydra.NewErrorWithCause(hydra.ErrorTypeConnection, "failed to connect to MongoDB", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, hydra.NewErrorWithCause(hydra.ErrorTypeConnection, "failed to ping MongoDB", err)
	}

	return client.Database(config.Database), nil
}

// buildConnectionURI builds MongoDB connection URI
func buildConnectionURI(config hydra.Config) string {
	if config.ConnectionURL != "" {
		return config.ConnectionURL
	}

	uri := "mongodb://"
	if config.Username != "" {
		uri += config.Username
		if config.Password != "" {
			uri += ":" + config.Password
		}
		uri += "@"
	}

	host := config.Host
	if host == "" {
		host = "localhost"
	}
	port := config.Port
	if port == 0 {
		port = 27017
	}
	uri += fmt.Sprintf("%s:%d", host, port)

	if config.Database != "" {
		uri += "/" + config.Database
	}

	if config.SSL.Enabled {
		uri += "?ssl=true"
		if config.SSL.CAFile != "" {
			uri += "&sslCAFile=" + config.SSL.CAFile
		}
		if config.SSL.CertFile != "" {
			uri += "&sslCertificateKeyFile=" + config.SSL.CertFile
		}
	}

	return uri
}

// applyClientOptions applies MongoDB-specific client options
func applyClientOptions(clientOpts *options.ClientOptions, mongoOpts map[string]interface{}) {
	if maxPoolSize, ok := mongoOpts["max_pool_size"].(int); ok {
		clientOpts.SetMaxPoolSize(uint64(maxPoolSize))
	}
	if minPoolSize, ok := mongoOpts["min_pool_size"].(int); ok {
		clientOpts.SetMinPoolSize(uint64(minPoolSize))
	}
	if maxIdleTime, ok := mongoOpts["max_idle_time"].(time.Duration); ok {
		clientOpts.SetMaxConnIdleTime(maxIdleTime)
	}
}

// =====================================
// Error Conversion
// =====================================

// convertMongoError converts MongoDB errors to hydra errors.
// mongo.ErrNoDocuments is handled by the callers and never reaches this
// function.
func convertMongoError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, mongo.ErrNilDocument) || errors.Is(err, mongo.ErrNilValue) {
		return hydra.NewErrorWithCause(hydra.ErrorTypeInvalidArgument, "nil value provided", err)
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		switch cmdErr.Code {
		case 13: // Unauthorized
			return hydra.NewErrorWithCause(hydra.ErrorTypeConnection, "unauthorized access", err)
		case 18: // AuthenticationFailed
			return hydra.NewErrorWithCause(hydra.ErrorTypeConnection, "authentication failed", err)
		}
	}

	if mongo.IsTimeout(err) {
		return hydra.NewErrorWithCause(hydra.ErrorTypeTimeout, "operation timeout", err)
	}
	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded") {
		return hydra.NewErrorWithCause(hydra.ErrorTypeTimeout, "operation timeout", err)
	}
	if mongo.IsNetworkError(err) || strings.Contains(errStr, "connection") {
		return hydra.NewErrorWithCause(hydra.ErrorTypeConnection, "connection error", err)
	}

	return hydra.NewErrorWithCause(hydra.ErrorTypeStore, "database operation failed", err)
}
