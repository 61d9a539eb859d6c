package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/metalagman/docqa/internal/config"
	"github.com/metalagman/docqa/internal/store"
)

func historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:          "history",
		Short:        "List recent review outcomes from the audit database",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if cfg.AuditDB == "" {
				return fmt.Errorf("audit_db is not configured")
			}

			auditDB, err := store.Open(cfg.AuditDB)
			if err != nil {
				return err
			}
			defer func() { _ = auditDB.Close() }()

			recs, err := store.New(auditDB).RecentReviews(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Print(renderHistory(recs))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum records to list")
	return cmd
}

func renderHistory(recs []store.ReviewRecord) string {
	if len(recs) == 0 {
		return styleMuted.Render("No reviews recorded.") + "\n"
	}
	var b strings.Builder
	for _, rec := range recs {
		status := styleAdded.Render(rec.Status)
		if rec.Status == store.StatusFailed {
			status = styleRemoved.Render(rec.Status)
		}
		fmt.Fprintf(&b, "%s  %s  %s  policy=%s attempts=%d accepted=%d lint=%d",
			rec.CreatedAt, rec.ID, status, rec.Policy, rec.Attempts, rec.AcceptedIssues, rec.LintIssues)
		if rec.Reason != "" {
			fmt.Fprintf(&b, "  %s", styleMuted.Render(rec.Reason))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
