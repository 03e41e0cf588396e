//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/meigma/tsar"
	"github.com/meigma/tsar/internal/testutil"
	"github.com/meigma/tsar/keys"
	"github.com/meigma/tsar/registry"
)

// --- Registry Container Setup ---

var (
	registryOnce sync.Once
	registryAddr string
	registryErr  error
)

// getRegistry returns the shared registry address, starting the container if needed.
// The container is shared across all tests for performance.
func getRegistry(tb testing.TB) string {
	tb.Helper()

	if os.Getenv("SKIP_DOCKER_TESTS") == "1" {
		tb.Skip("SKIP_DOCKER_TESTS is set")
	}

	registryOnce.Do(func() {
		registryAddr, registryErr = startRegistryContainer(context.Background())
	})

	if registryErr != nil {
		tb.Fatalf("start registry container: %v", registryErr)
	}

	return registryAddr
}

// startRegistryContainer starts a registry:2 container and returns the host:port address.
func startRegistryContainer(ctx context.Context) (string, error) {
	req := testcontainers.ContainerRequest{
		Image:        "registry:2",
		ExposedPorts: []string{"5000/tcp"},
		WaitingFor:   wait.ForHTTP("/v2/").WithPort("5000/tcp").WithStatusCodeMatcher(isOKStatus),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("start registry container: %w", err)
	}

	// Container cleanup is handled by the testcontainers Reaper.

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve registry host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5000/tcp")
	if err != nil {
		return "", fmt.Errorf("resolve registry port: %w", err)
	}

	return fmt.Sprintf("%s:%s", host, port.Port()), nil
}

func isOKStatus(status int) bool {
	return status >= 200 && status < 300
}

// --- Test Client Factory ---

// newTestClient creates a client configured for the local test registry.
func newTestClient(opts ...registry.Option) *registry.Client {
	// Always use plain HTTP for local registry
	allOpts := append([]registry.Option{registry.WithPlainHTTP(true), registry.WithAnonymous(true)}, opts...)
	return registry.New(allOpts...)
}

// --- Test Reference Helpers ---

// testRef generates a unique reference for a test to avoid collisions.
func testRef(registryAddr, testName string) string {
	return fmt.Sprintf("%s/test/%s:latest", registryAddr, testName)
}

// testRefWithTag generates a reference with a specific tag.
func testRefWithTag(registryAddr, testName, tag string) string {
	return fmt.Sprintf("%s/test/%s:%s", registryAddr, testName, tag)
}

// --- Test Data Helpers ---

// helloTree is a run-list with one package granted by the network role.
var helloTree = map[string]testutil.File{
	"roles/network.yaml": {Content: "dependencies: [hello]\n"},
	"hello/package.yaml": {Content: "name: hello\nversion: \"1.0\"\n"},
	"hello/main.sh":      testutil.Script("echo hello"),
	"hello/data.txt":     {Content: "payload data"},
}

// compiled is an archive on disk with the key that verifies it.
type compiled struct {
	Path string
	Data []byte
	Seed keys.Seed
	Pub  keys.PublicKey
}

// compileArchive compiles files into a signed archive requiring roles.
func compileArchive(tb testing.TB, files map[string]testutil.File, roles ...string) compiled {
	tb.Helper()

	src := tb.TempDir()
	testutil.WriteTree(tb, src, files)
	seed, pub := testutil.NewKey(tb)

	p, err := tsar.New()
	require.NoError(tb, err)
	path := filepath.Join(tb.TempDir(), "archive.tsar")
	_, err = p.Compile(context.Background(), src, path, seed, roles)
	require.NoError(tb, err, "compile")

	data, err := os.ReadFile(path)
	require.NoError(tb, err)
	return compiled{Path: path, Data: data, Seed: seed, Pub: pub}
}
