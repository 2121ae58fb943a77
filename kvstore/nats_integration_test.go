//go:build integration

package kvstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startNATSContainer starts a JetStream-enabled NATS server for the test.
func startNATSContainer(ctx context.Context, t *testing.T) (testcontainers.Container, string) {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "nats:2.11.7-alpine",
		Cmd:          []string{"-js"},
		ExposedPorts: []string{"4222/tcp"},
		WaitingFor:   wait.ForListeningPort("4222/tcp"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "4222")
	require.NoError(t, err)

	return container, fmt.Sprintf("nats://%s:%s", host, port.Port())
}

func TestNATSStoreRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, url := startNATSContainer(ctx, t)
	defer func() { _ = container.Terminate(ctx) }()

	opts := DefaultNATSOptions("adapterkit-test")
	opts.URL = url

	store, err := ConnectNATS(ctx, opts)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Write(ctx, "nodes:n1", []byte(`{"id":"n1"}`)))

	got, err := store.Read(ctx, "nodes:n1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"n1"}`, string(got))

	require.NoError(t, store.Delete(ctx, "nodes:n1"))

	_, err = store.Read(ctx, "nodes:n1")
	assert.True(t, IsNotFound(err))
}

func TestNATSStoreMissingKeyIsStatusNotFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, url := startNATSContainer(ctx, t)
	defer func() { _ = container.Terminate(ctx) }()

	opts := DefaultNATSOptions("adapterkit-test-missing")
	opts.URL = url

	store, err := ConnectNATS(ctx, opts)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Read(ctx, "tags:absent")
	assert.True(t, IsNotFound(err), "missing key must be a not-found status, got %v", err)

	assert.True(t, IsNotFound(store.Delete(ctx, "tags:absent")))
}

func TestNATSStoreScopedNamespaces(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, url := startNATSContainer(ctx, t)
	defer func() { _ = container.Terminate(ctx) }()

	opts := DefaultNATSOptions("adapterkit-test-scoped")
	opts.URL = url

	store, err := ConnectNATS(ctx, opts)
	require.NoError(t, err)
	defer store.Close()

	a := Scoped(store, "plant-a")
	b := Scoped(store, "plant-b")

	require.NoError(t, a.Write(ctx, "tags", []byte(`["t1"]`)))
	require.NoError(t, b.Write(ctx, "tags", []byte(`["t2"]`)))

	gotA, err := a.Read(ctx, "tags")
	require.NoError(t, err)
	gotB, err := b.Read(ctx, "tags")
	require.NoError(t, err)

	assert.JSONEq(t, `["t1"]`, string(gotA))
	assert.JSONEq(t, `["t2"]`, string(gotB))
}
