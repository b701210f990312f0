package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/auditelle/storefront/internal/email"
	"github.com/auditelle/storefront/internal/reseller"
)

var errInvalid = errors.New("one or more entries are invalid")

func newRootCmd(reg *reseller.Registry) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "resellerctl",
		Short:         "Inspect and validate storefront reseller entries",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(listCmd(reg))
	rootCmd.AddCommand(validateCmd(reg))
	rootCmd.AddCommand(showCmd(reg))
	rootCmd.AddCommand(redirectsCmd(reg))
	rootCmd.AddCommand(metadataCmd(reg))
	rootCmd.AddCommand(previewEmailCmd(reg))

	return rootCmd
}

// build resolves raw the way the server does, except that an unknown id
// is an error rather than a fallback. An empty raw reads RESELLER_ID.
func build(reg *reseller.Registry, raw string) (*reseller.Config, error) {
	if raw == "" {
		raw = os.Getenv(reseller.EnvVar)
	}
	if _, known := reg.Normalize(raw); !known {
		return nil, fmt.Errorf("%w: %q", reseller.ErrUnknownReseller, raw)
	}
	return reg.Build(raw)
}

func optionalID(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func listCmd(reg *reseller.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered resellers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tBRAND\tDOMAIN\tLOCALE\tDEFAULT")
			for _, id := range reg.IDs() {
				cfg, err := reg.Build(id)
				if err != nil {
					fmt.Fprintf(tw, "%s\t-\t-\t-\t(invalid: %v)\n", id, err)
					continue
				}
				def := ""
				if id == reg.DefaultID() {
					def = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", id, cfg.Branding.Name, cfg.Branding.Domain, cfg.Locale.Tag, def)
			}
			return tw.Flush()
		},
	}
}

func validateCmd(reg *reseller.Registry) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "validate [id...]",
		Short: "Validate reseller entries",
		Long: `Build and validate each entry: every string present, plan tables
consistent, placeholders known, redirects well formed.

With --dir, entries are read from <dir>/*.yaml instead of the built-in set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := reg
			if dir != "" {
				target = reseller.NewRegistry(reseller.DefaultID)
				if err := target.LoadDir(os.DirFS(dir), "."); err != nil {
					return err
				}
			}
			ids := args
			if len(ids) == 0 {
				ids = target.IDs()
			}
			if len(ids) == 0 {
				return fmt.Errorf("no entries found")
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, id := range ids {
				if _, known := target.Normalize(id); !known {
					fmt.Fprintf(out, "FAIL %s: unknown reseller\n", id)
					failed++
					continue
				}
				if _, err := target.Build(id); err != nil {
					fmt.Fprintf(out, "FAIL %s: %v\n", id, err)
					failed++
					continue
				}
				fmt.Fprintf(out, "ok   %s\n", id)
			}
			if failed > 0 {
				return fmt.Errorf("%w (%d of %d)", errInvalid, failed, len(ids))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Directory of *.yaml entries to validate")
	return cmd
}

func showCmd(reg *reseller.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Print a resolved entry as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := build(reg, optionalID(args))
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

func redirectsCmd(reg *reseller.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "redirects [id]",
		Short: "Print the redirect table as JSON",
		Long: `Print the redirect table of the reseller as JSON, for the routing
layer that is configured before the server starts.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := build(reg, optionalID(args))
			if err != nil {
				return err
			}
			redirects, err := reseller.RedirectsFor(reg, cfg.ID)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), redirects)
		},
	}
}

func metadataCmd(reg *reseller.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "metadata [id]",
		Short: "Print the page metadata as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := build(reg, optionalID(args))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), reseller.BuildMetadata(cfg))
		},
	}
}

func previewEmailCmd(reg *reseller.Registry) *cobra.Command {
	var (
		id      string
		format  string
		p       email.Params
		plan    string
		toEmail string
	)
	cmd := &cobra.Command{
		Use:       "preview-email <template>",
		Short:     "Render a transactional email",
		ValidArgs: templateNames(),
		Args:      cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := build(reg, id)
			if err != nil {
				return err
			}
			p.Plan = reseller.PlanID(plan)
			msg, err := email.Render(cfg, email.Template(args[0]), p)
			if err != nil {
				return err
			}
			msg.To = toEmail

			out := cmd.OutOrStdout()
			switch format {
			case "html":
				_, err = io.WriteString(out, msg.HTML)
			case "text":
				_, err = io.WriteString(out, msg.Text)
			case "json":
				err = writeJSON(out, msg)
			default:
				return fmt.Errorf("unknown format %q (html, text, json)", format)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&id, "reseller", "r", "", "Reseller id (default $"+reseller.EnvVar+")")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format (html, text, json)")
	cmd.Flags().StringVar(&p.Name, "name", "Marie Dupont", "Recipient display name")
	cmd.Flags().StringVar(&plan, "plan", string(reseller.PlanStarter), "Plan for subscriptionConfirmed")
	cmd.Flags().IntVar(&p.Percent, "percent", 80, "Usage percent for upgradeReminder")
	cmd.Flags().IntVar(&p.Days, "days", 3, "Days left for trialExpiring")
	cmd.Flags().StringVar(&toEmail, "to", "", "Recipient address shown in json output")

	return cmd
}

func templateNames() []string {
	var names []string
	for _, t := range email.Templates() {
		names = append(names, string(t))
	}
	return names
}
