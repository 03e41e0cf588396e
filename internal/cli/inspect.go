package cli

import (
	"github.com/spf13/cobra"
)

func newInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect -k KEY [-o FILE] [ARCHIVE]",
		Short: "Verify an archive and extract its payload",
		Long: `inspect verifies ARCHIVE (standard input when omitted) against the public
KEY and writes its compressed payload to --output, or to standard output.
Nothing is written unless the signature verifies.`,
		Example:           `  tsh inspect -k "$(tsh keytool tsar.seed)" -o payload.tar.gz hello.tsar`,
		Args:              usageArgs(cobra.MaximumNArgs(1)),
		RunE:              runInspect,
		DisableAutoGenTag: true,
	}
	cmd.Flags().StringP(FlagKey, "k", "", "base64 public key the archive must verify against")
	cmd.Flags().StringP(FlagOutput, "o", "", "write the payload to FILE")
	return cmd
}

func runInspect(cmd *cobra.Command, args []string) error {
	pub, err := publicKeyFlag(cmd)
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString(FlagOutput)
	if err != nil {
		return err
	}
	p, err := newPipeline(cmd)
	if err != nil {
		return err
	}
	m, err := p.Inspect(cmd.Context(), archiveArg(args), pub, output)
	if err != nil {
		return err
	}
	sessionFrom(cmd).logger.Info("payload extracted",
		"roles", m.Roles,
		"payload_digest", m.PayloadDigest.String(),
		"payload_size", m.PayloadSize)
	return nil
}
