// Package testutil starts shared Testcontainers instances for integration
// tests. When Docker is unavailable the calling test is skipped.
package testutil

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type shared struct {
	once sync.Once
	addr string
	err  error
}

var (
	mongoC shared
	redisC shared
)

// MongoURI returns the URI of a shared MongoDB container.
func MongoURI(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping MongoDB container in short mode")
	}
	mongoC.once.Do(func() {
		var hostPort string
		hostPort, mongoC.err = start("mongo:7", "27017/tcp", "")
		mongoC.addr = "mongodb://" + hostPort
	})
	if mongoC.err != nil {
		t.Skipf("skipping MongoDB tests: %v", mongoC.err)
	}
	return mongoC.addr
}

// RedisAddr returns host:port of a shared Redis container.
func RedisAddr(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Redis container in short mode")
	}
	redisC.once.Do(func() {
		redisC.addr, redisC.err = start("redis:7", "6379/tcp", "Ready to accept connections")
	})
	if redisC.err != nil {
		t.Skipf("skipping Redis tests: %v", redisC.err)
	}
	return redisC.addr
}

// start runs image and returns host:port for port. Containers are left for
// Testcontainers' reaper to remove at process exit.
func start(image string, port nat.Port, readyLog string) (addr string, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	// Testcontainers panics when no Docker host can be found.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("starting %s panicked: %v", image, r)
		}
	}()

	strategy := wait.ForListeningPort(port).WithStartupTimeout(2 * time.Minute)
	var waitFor wait.Strategy = strategy
	if readyLog != "" {
		waitFor = wait.ForAll(strategy, wait.ForLog(readyLog))
	}

	c, err := testcontainers.Run(ctx, image,
		testcontainers.WithExposedPorts(string(port)),
		testcontainers.WithWaitStrategy(waitFor),
	)
	if err != nil {
		return "", fmt.Errorf("start %s: %w", image, err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(context.Background())
		return "", fmt.Errorf("container host: %w", err)
	}
	mapped, err := c.MappedPort(ctx, port)
	if err != nil {
		_ = c.Terminate(context.Background())
		return "", fmt.Errorf("container port %s: %w", port, err)
	}

	// Avoid [::1]:port resolution problems.
	if host == "" || host == "localhost" || host == "::1" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, mapped.Port()), nil
}
