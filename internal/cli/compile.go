package cli

import (
	"github.com/spf13/cobra"

	"github.com/meigma/tsar"
	"github.com/meigma/tsar/internal/flags/enum"
)

const (
	FlagDirectory   = "directory"
	FlagCompression = "compression"
)

func newCompileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile -s SEEDFILE [-d DIR] [-o FILE] ROLE...",
		Short: "Pack and sign a directory into an archive",
		Long: `compile packs DIR into a payload, records the ROLEs the archive requires,
and signs the result with the key derived from SEEDFILE.

Run-list descriptors (roles/<role>.yaml and <package>/package.yaml) are
validated before signing. Dot-files and symbolic links are not packed.
Without --output the archive is written to standard output.`,
		Example:           `  tsh compile -s tsar.seed -d ./hello -o hello.tsar network fs-read`,
		Args:              usageArgs(cobra.MinimumNArgs(1)),
		RunE:              runCompile,
		DisableAutoGenTag: true,
	}
	cmd.Flags().StringP(FlagDirectory, "d", "./", "directory to pack")
	cmd.Flags().StringP(FlagOutput, "o", "", "write the archive to FILE")
	cmd.Flags().StringP(FlagSeedfile, "s", "", "seedfile holding the signing seed (\"-\" for standard input)")
	enum.Var(cmd.Flags(), FlagCompression, []string{"gzip", "zstd"}, "payload compression (default from config, else gzip)")
	_ = cmd.MarkFlagRequired(FlagSeedfile)
	return cmd
}

func runCompile(cmd *cobra.Command, roles []string) error {
	flags := cmd.Flags()
	dir, err := flags.GetString(FlagDirectory)
	if err != nil {
		return err
	}
	output, err := flags.GetString(FlagOutput)
	if err != nil {
		return err
	}
	seedPath, err := flags.GetString(FlagSeedfile)
	if err != nil {
		return err
	}
	compressionName, err := enum.Get(flags, FlagCompression)
	if err != nil {
		return err
	}
	if !flags.Changed(FlagCompression) && sessionFrom(cmd).config.Compression != "" {
		compressionName = sessionFrom(cmd).config.Compression
	}
	compression, err := tsar.ParseCompression(compressionName)
	if err != nil {
		return err
	}

	seed, err := readSeed(cmd, seedPath)
	if err != nil {
		return err
	}
	p, err := newPipeline(cmd, tsar.WithCompression(compression))
	if err != nil {
		return err
	}
	res, err := p.Compile(cmd.Context(), dir, output, seed, roles)
	if err != nil {
		return err
	}
	sessionFrom(cmd).logger.Info("compiled",
		"roles", res.Manifest.Roles,
		"public_key", res.PublicKey.String(),
		"size", res.Size)
	return nil
}
