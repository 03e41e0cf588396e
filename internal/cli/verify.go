package cli

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/meigma/tsar"
)

const FlagConcurrency = "concurrency"

func newVerifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify -k KEY ARCHIVE...",
		Short: "Verify archives without extracting them",
		Long: `verify checks each ARCHIVE against the public KEY and prints a table of
results. It exits non-zero when any archive fails.`,
		Example:           `  tsh verify -k "$(tsh keytool tsar.seed)" dist/*.tsar`,
		Args:              usageArgs(cobra.MinimumNArgs(1)),
		RunE:              runVerify,
		DisableAutoGenTag: true,
	}
	cmd.Flags().StringP(FlagKey, "k", "", "base64 public key the archives must verify against")
	cmd.Flags().Int(FlagConcurrency, 0, "number of archives verified at once (default GOMAXPROCS)")
	return cmd
}

func runVerify(cmd *cobra.Command, paths []string) error {
	pub, err := publicKeyFlag(cmd)
	if err != nil {
		return err
	}
	concurrency, err := cmd.Flags().GetInt(FlagConcurrency)
	if err != nil {
		return err
	}
	var opts []tsar.Option
	if concurrency > 0 {
		opts = append(opts, tsar.WithConcurrency(concurrency))
	}
	p, err := newPipeline(cmd, opts...)
	if err != nil {
		return err
	}

	results, err := p.VerifyFiles(cmd.Context(), pub, paths...)
	if err != nil {
		return err
	}
	if _, err := cmd.OutOrStdout().Write(renderResults(results)); err != nil {
		return err
	}

	var failed []error
	for _, r := range results {
		if !r.OK() {
			failed = append(failed, r.Err)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d archives failed verification: %w", len(failed), len(results), failed[0])
	}
	return nil
}

func renderResults(results []tsar.VerifyResult) []byte {
	var buf bytes.Buffer
	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	t.AppendHeader(table.Row{"ARCHIVE", "STATUS", "ROLES", "DIGEST", "ERROR"})
	for _, r := range results {
		if r.OK() {
			t.AppendRow(table.Row{r.Path, "verified", strings.Join(r.Manifest.Roles, ","), r.Manifest.PayloadDigest.String(), ""})
			continue
		}
		t.AppendRow(table.Row{r.Path, "failed", "", "", r.Err.Error()})
	}
	style := table.StyleLight
	style.Options.DrawBorder = false
	t.SetStyle(style)
	t.Render()
	return buf.Bytes()
}
