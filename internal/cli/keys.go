package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meigma/tsar/keys"
)

const (
	FlagKey      = "key"
	FlagOutput   = "output"
	FlagSeedfile = "seedfile"
)

// stdinName selects standard input where a file path is expected.
const stdinName = "-"

func newKeytoolCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keytool [-o FILE | SEEDFILE]",
		Short: "Generate a signing seed or print the public key of one",
		Long: `Without arguments, keytool generates a new seed and writes the seedfile to
--output, or to standard output. The seedfile is written with mode 0600 and
an existing file is never overwritten.

With a SEEDFILE argument ("-" for standard input), keytool prints the
public key that verifies archives signed with that seed.`,
		Example: `  tsh keytool -o tsar.seed
  tsh keytool tsar.seed`,
		Args:              usageArgs(cobra.MaximumNArgs(1)),
		RunE:              runKeytool,
		DisableAutoGenTag: true,
	}
	cmd.Flags().StringP(FlagOutput, "o", "", "write the generated seedfile to FILE")
	return cmd
}

func runKeytool(cmd *cobra.Command, args []string) error {
	output, err := cmd.Flags().GetString(FlagOutput)
	if err != nil {
		return err
	}
	logger := sessionFrom(cmd).logger

	if len(args) == 1 {
		if output != "" {
			return &usageError{err: fmt.Errorf("--%s cannot be combined with a seedfile argument", FlagOutput)}
		}
		seed, err := readSeed(cmd, args[0])
		if err != nil {
			return err
		}
		pub, err := keys.DerivePublicKey(seed)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), pub)
		return err
	}

	seed, err := keys.GenerateSeed()
	if err != nil {
		return err
	}
	if output == "" {
		_, err = cmd.OutOrStdout().Write(keys.MarshalSeedFile(seed))
		return err
	}
	if err := keys.WriteSeedFile(output, seed); err != nil {
		return err
	}
	pub, err := keys.DerivePublicKey(seed)
	if err != nil {
		return err
	}
	logger.Info("seed generated", "path", output, "public_key", pub.String())
	_, err = fmt.Fprintln(cmd.OutOrStdout(), pub)
	return err
}

// readSeed reads a seedfile from path, or standard input for "-".
func readSeed(cmd *cobra.Command, path string) (keys.Seed, error) {
	if path == stdinName {
		return keys.ParseSeedFile(cmd.InOrStdin())
	}
	return keys.ReadSeedFile(path)
}

// publicKeyFlag parses the required --key flag.
func publicKeyFlag(cmd *cobra.Command) (keys.PublicKey, error) {
	s, err := cmd.Flags().GetString(FlagKey)
	if err != nil {
		return keys.PublicKey{}, err
	}
	if s == "" {
		return keys.PublicKey{}, &usageError{err: fmt.Errorf("--%s is required", FlagKey)}
	}
	return keys.ParsePublicKey(s)
}

// archiveArg returns the archive path argument. No argument and "-" both
// select standard input, which the pipeline spells as the empty path.
func archiveArg(args []string) string {
	if len(args) == 0 || args[0] == stdinName {
		return ""
	}
	return args[0]
}
