package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/errdef"
	orasregistry "oras.land/oras-go/v2/registry"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"
	"oras.land/oras-go/v2/registry/remote/errcode"
	"oras.land/oras-go/v2/registry/remote/retry"
)

// DefaultMaxArchiveSize bounds how large a pulled archive may be.
const DefaultMaxArchiveSize int64 = 1 << 30

// Client pushes and pulls archives.
type Client struct {
	plainHTTP  bool
	anonymous  bool
	userAgent  string
	credStore  credentials.Store
	maxSize    int64
	logger     *slog.Logger
	target     oras.Target
	authClient *auth.Client
}

// Option configures a Client.
type Option func(*Client)

// WithCredentialStore sets the credential store for authentication.
func WithCredentialStore(store credentials.Store) Option {
	return func(c *Client) {
		c.credStore = store
	}
}

// WithStaticCredentials sets static username/password credentials for a registry.
func WithStaticCredentials(registry, username, password string) Option {
	return func(c *Client) {
		c.credStore = StaticCredentials(registry, username, password)
	}
}

// WithDockerConfig reads credentials from ~/.docker/config.json. If the
// docker config cannot be loaded the client falls back to no credentials.
func WithDockerConfig() Option {
	return func(c *Client) {
		store, err := DefaultCredentialStore()
		if err != nil {
			return
		}
		c.credStore = store
	}
}

// WithPlainHTTP enables plain HTTP (no TLS) for registries.
func WithPlainHTTP(enabled bool) Option {
	return func(c *Client) {
		c.plainHTTP = enabled
	}
}

// WithAnonymous disables all authentication, including credential store lookups.
func WithAnonymous(enabled bool) Option {
	return func(c *Client) {
		c.anonymous = enabled
	}
}

// WithUserAgent sets the User-Agent header for requests.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithMaxArchiveSize bounds the size of pulled archives.
// Zero uses DefaultMaxArchiveSize. Negative means no limit.
func WithMaxArchiveSize(n int64) Option {
	return func(c *Client) {
		c.maxSize = n
	}
}

// WithLogger sets the logger for registry operations.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTarget routes every operation to target instead of a remote
// repository, for example an in-memory store or OCI layout.
func WithTarget(target oras.Target) Option {
	return func(c *Client) {
		c.target = target
	}
}

// New creates a registry client with the given options.
func New(opts ...Option) *Client {
	c := &Client{userAgent: "tsh"}
	for _, opt := range opts {
		opt(c)
	}

	var credential auth.CredentialFunc
	if !c.anonymous && c.credStore != nil {
		credential = credentials.Credential(c.credStore)
	}
	c.authClient = &auth.Client{
		Client:     retry.DefaultClient,
		Cache:      auth.NewCache(),
		Credential: credential,
		Header: http.Header{
			"User-Agent": []string{c.userAgent},
		},
	}
	return c
}

// dockerHubAddresses are the keys Docker clients file Docker Hub
// credentials under.
var dockerHubAddresses = []string{
	"https://index.docker.io/v1/",
	"index.docker.io",
	"registry-1.docker.io",
	"docker.io",
}

// DefaultCredentialStore returns the store backed by the Docker config file
// and the credential helpers it names.
func DefaultCredentialStore() (credentials.Store, error) {
	store, err := credentials.NewStoreFromDocker(credentials.StoreOptions{})
	if err != nil {
		return nil, err
	}
	return dockerHubStore{Store: store}, nil
}

// StaticCredentials returns a store holding a single username and password
// for registry. registry may carry a scheme or path, as copied from a
// browser or a Docker config key.
func StaticCredentials(registry, username, password string) credentials.Store {
	store := credentials.NewMemoryStore()
	// Put on a memory store cannot fail.
	_ = store.Put(context.Background(), credentials.ServerAddressFromRegistry(hostOf(registry)), auth.Credential{
		Username: username,
		Password: password,
	})
	return dockerHubStore{Store: store}
}

// dockerHubStore finds Docker Hub credentials under any of
// dockerHubAddresses.
type dockerHubStore struct {
	credentials.Store
}

func (s dockerHubStore) Get(ctx context.Context, serverAddress string) (auth.Credential, error) {
	cred, err := s.Store.Get(ctx, serverAddress)
	if err != nil || cred != auth.EmptyCredential || !slices.Contains(dockerHubAddresses, serverAddress) {
		return cred, err
	}
	for _, alias := range dockerHubAddresses {
		if alias == serverAddress {
			continue
		}
		if alt, err := s.Store.Get(ctx, alias); err == nil && alt != auth.EmptyCredential {
			return alt, nil
		}
	}
	return auth.EmptyCredential, nil
}

// hostOf strips a scheme and path from addr.
func hostOf(addr string) string {
	if _, rest, ok := strings.Cut(addr, "://"); ok {
		addr = rest
	}
	host, _, _ := strings.Cut(addr, "/")
	return host
}

// log returns the logger, falling back to a discard logger if nil.
func (c *Client) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

func (c *Client) sizeLimit() int64 {
	if c.maxSize == 0 {
		return DefaultMaxArchiveSize
	}
	return c.maxSize
}

// repository returns the target for ref.
func (c *Client) repository(ref orasregistry.Reference) (oras.Target, error) {
	if c.target != nil {
		return c.target, nil
	}
	repo, err := remote.NewRepository(ref.Registry + "/" + ref.Repository)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	repo.PlainHTTP = c.plainHTTP
	repo.Client = c.authClient
	return repo, nil
}

// parseRef parses a full reference into registry, repository and tag or digest.
func parseRef(ref string) (orasregistry.Reference, error) {
	r, err := orasregistry.ParseReference(ref)
	if err != nil {
		return orasregistry.Reference{}, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	if r.Reference == "" {
		return orasregistry.Reference{}, fmt.Errorf("%w: %q has no tag or digest", ErrInvalidReference, ref)
	}
	return r, nil
}

// mapError maps ORAS errors to package sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, errdef.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	var errResp *errcode.ErrorResponse
	if errors.As(err, &errResp) {
		switch errResp.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %v", ErrUnauthorized, err)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrForbidden, err)
		}
	}
	return err
}
