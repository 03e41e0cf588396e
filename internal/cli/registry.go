package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	orasregistry "oras.land/oras-go/v2/registry"

	"github.com/meigma/tsar/archive"
	"github.com/meigma/tsar/internal/ioutil"
	"github.com/meigma/tsar/registry"
)

const (
	FlagPlainHTTP = "plain-http"
	FlagAnonymous = "anonymous"
	FlagTag       = "tag"
	FlagUsername  = "username"
	FlagPassStdin = "password-stdin"
)

// maxPasswordSize bounds the password read from stdin.
const maxPasswordSize = 64 << 10

func addRegistryFlags(cmd *cobra.Command) {
	cmd.Flags().Bool(FlagPlainHTTP, false, "use plain HTTP instead of HTTPS")
	cmd.Flags().Bool(FlagAnonymous, false, "ignore configured credentials")
	cmd.Flags().StringP(FlagUsername, "u", "", "registry username, used with --password-stdin")
	cmd.Flags().Bool(FlagPassStdin, false, "read the registry password from standard input")
	cmd.MarkFlagsRequiredTogether(FlagUsername, FlagPassStdin)
	cmd.MarkFlagsMutuallyExclusive(FlagAnonymous, FlagUsername)
}

// staticCredentials returns credentials for the registry of ref from
// --username and --password-stdin, or nil when they were not given.
func staticCredentials(cmd *cobra.Command, ref string) (registry.Option, error) {
	username, err := cmd.Flags().GetString(FlagUsername)
	if err != nil {
		return nil, err
	}
	if username == "" {
		return nil, nil
	}
	r, err := orasregistry.ParseReference(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", registry.ErrInvalidReference, err)
	}
	data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), maxPasswordSize+1))
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	if len(data) > maxPasswordSize {
		return nil, &usageError{err: errors.New("password on standard input is too long")}
	}
	password := strings.TrimRight(string(data), "\r\n")
	if password == "" {
		return nil, &usageError{err: errors.New("--password-stdin: no password on standard input")}
	}
	return registry.WithStaticCredentials(r.Registry, username, password), nil
}

// newRegistryClient builds a client for ref from the registry flags and
// config. Flags that were set override the configuration file.
func newRegistryClient(cmd *cobra.Command, ref string) (*registry.Client, error) {
	s := sessionFrom(cmd)
	plainHTTP := s.config.Registry.PlainHTTP
	if cmd.Flags().Changed(FlagPlainHTTP) {
		v, err := cmd.Flags().GetBool(FlagPlainHTTP)
		if err != nil {
			return nil, err
		}
		plainHTTP = v
	}
	anonymous := s.config.Registry.Anonymous
	if cmd.Flags().Changed(FlagAnonymous) {
		v, err := cmd.Flags().GetBool(FlagAnonymous)
		if err != nil {
			return nil, err
		}
		anonymous = v
	}

	opts := []registry.Option{
		registry.WithPlainHTTP(plainHTTP),
		registry.WithAnonymous(anonymous),
		registry.WithLogger(s.logger),
		registry.WithUserAgent(userAgent()),
	}
	if !anonymous {
		opts = append(opts, registry.WithDockerConfig())
	}
	static, err := staticCredentials(cmd, ref)
	if err != nil {
		return nil, err
	}
	if static != nil {
		opts = append(opts, static)
	}
	if s.config.MaxArchiveSize > 0 {
		opts = append(opts, registry.WithMaxArchiveSize(s.config.MaxArchiveSize))
	}
	return registry.New(opts...), nil
}

// verifyIfKeyed verifies data when --key was given.
func verifyIfKeyed(cmd *cobra.Command, data []byte) error {
	if !cmd.Flags().Changed(FlagKey) {
		return nil
	}
	pub, err := publicKeyFlag(cmd)
	if err != nil {
		return err
	}
	c, err := archive.Decode(data)
	if err != nil {
		return err
	}
	if _, err := archive.Verify(pub, c); err != nil {
		return err
	}
	sessionFrom(cmd).logger.Info("archive verified", "roles", c.Manifest().Roles)
	return nil
}

func newPushCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push ARCHIVE REF",
		Short: "Push an archive to an OCI registry",
		Long: `push uploads ARCHIVE as an OCI artifact tagged REF. With --key the archive
is verified before upload. Credentials are read from the Docker
configuration unless --anonymous is set, or from --username and
--password-stdin.`,
		Example: `  tsh push hello.tsar ghcr.io/acme/hello:v1
  echo "$TOKEN" | tsh push -u ci --password-stdin hello.tsar ghcr.io/acme/hello:v1`,
		Args:              usageArgs(cobra.ExactArgs(2)),
		RunE:              runPush,
		DisableAutoGenTag: true,
	}
	addRegistryFlags(cmd)
	cmd.Flags().StringP(FlagKey, "k", "", "verify the archive against this base64 public key before pushing")
	cmd.Flags().StringArray(FlagTag, nil, "additional tag to apply (repeatable)")
	return cmd
}

func runPush(cmd *cobra.Command, args []string) error {
	archivePath, ref := args[0], args[1]
	data, err := os.ReadFile(archivePath)
	if err != nil {
		return fmt.Errorf("read archive: %w", err)
	}
	if err := verifyIfKeyed(cmd, data); err != nil {
		return err
	}
	tags, err := cmd.Flags().GetStringArray(FlagTag)
	if err != nil {
		return err
	}

	client, err := newRegistryClient(cmd, ref)
	if err != nil {
		return err
	}
	desc, err := client.Push(cmd.Context(), ref, data, registry.WithTags(tags...))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), desc.Digest)
	return err
}

func newPullCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pull REF [-o FILE]",
		Short: "Pull an archive from an OCI registry",
		Long: `pull downloads the archive tagged REF and writes it to --output, or to
standard output. With --key nothing is written unless the archive
verifies.`,
		Example:           `  tsh pull ghcr.io/acme/hello:v1 -o hello.tsar`,
		Args:              usageArgs(cobra.ExactArgs(1)),
		RunE:              runPull,
		DisableAutoGenTag: true,
	}
	addRegistryFlags(cmd)
	cmd.Flags().StringP(FlagKey, "k", "", "verify the archive against this base64 public key before writing")
	cmd.Flags().StringP(FlagOutput, "o", "", "write the archive to FILE")
	return cmd
}

func runPull(cmd *cobra.Command, args []string) error {
	output, err := cmd.Flags().GetString(FlagOutput)
	if err != nil {
		return err
	}
	client, err := newRegistryClient(cmd, args[0])
	if err != nil {
		return err
	}
	data, artifact, err := client.Pull(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := verifyIfKeyed(cmd, data); err != nil {
		return err
	}
	if err := ioutil.WriteOutput(cmd.OutOrStdout(), output, data, 0o644); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	sessionFrom(cmd).logger.Info("archive pulled",
		"ref", args[0],
		"digest", artifact.Layer.Digest.String(),
		"roles", artifact.Roles)
	return nil
}
