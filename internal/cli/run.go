package cli

import (
	"slices"

	"github.com/spf13/cobra"

	"github.com/meigma/tsar"
	"github.com/meigma/tsar/grant"
)

const (
	FlagAllow    = "allow"
	FlagAllowAll = "allow-all"
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run -k KEY [--allow ROLE]... [ARCHIVE]",
		Short: "Verify an archive and run it",
		Long: `run verifies ARCHIVE (standard input when omitted) against the public KEY,
checks that every role it requires has been granted, extracts it into a
private temporary directory and executes its run-list.

Roles are granted with --allow, the allowedRoles list of the configuration
file, or --allow-all. tsh exits with the exit code of the first failing
package, or 0.`,
		Example:           `  tsh run -k "$(tsh keytool tsar.seed)" --allow network hello.tsar`,
		Args:              usageArgs(cobra.MaximumNArgs(1)),
		RunE:              runRun,
		DisableAutoGenTag: true,
	}
	cmd.Flags().StringP(FlagKey, "k", "", "base64 public key the archive must verify against")
	cmd.Flags().StringArray(FlagAllow, nil, "grant ROLE to the archive (repeatable)")
	cmd.Flags().Bool(FlagAllowAll, false, "grant every role the archive requires")
	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	pub, err := publicKeyFlag(cmd)
	if err != nil {
		return err
	}
	granter, err := granterFromFlags(cmd)
	if err != nil {
		return err
	}
	p, err := newPipeline(cmd, tsar.WithGranter(granter))
	if err != nil {
		return err
	}
	code, err := p.Run(cmd.Context(), archiveArg(args), pub)
	if err != nil {
		return err
	}
	if code != 0 {
		return &exitError{code: code}
	}
	return nil
}

// granterFromFlags combines --allow and --allow-all with the configuration.
func granterFromFlags(cmd *cobra.Command) (grant.Granter, error) {
	cfg := sessionFrom(cmd).config
	allowAll, err := cmd.Flags().GetBool(FlagAllowAll)
	if err != nil {
		return nil, err
	}
	if allowAll || cfg.AllowAllRoles {
		return grant.AllowAll(), nil
	}
	allowed, err := cmd.Flags().GetStringArray(FlagAllow)
	if err != nil {
		return nil, err
	}
	roles := slices.Concat(cfg.AllowedRoles, allowed)
	return grant.NewAllowList(roles...), nil
}
