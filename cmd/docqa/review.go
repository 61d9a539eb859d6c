package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/metalagman/docqa/internal/config"
	"github.com/metalagman/docqa/internal/model"
)

var (
	styleHeading = lipgloss.NewStyle().Bold(true)
	styleAdded   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	styleRemoved = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	styleMuted   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	styleBySeverity = map[model.Severity]lipgloss.Style{
		model.SeverityInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		model.SeverityWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		model.SeverityError:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	}
)

func reviewCmd() *cobra.Command {
	var write bool
	var pretty bool
	var showIssues bool
	cmd := &cobra.Command{
		Use:          "review <file>",
		Short:        "Review a markdown file and print the resulting diff",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}

			doc, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			deps, err := buildCollaborators(cfg)
			if err != nil {
				return err
			}
			defer deps.closeFn()

			outcome, err := deps.reviewer.Run(cmd.Context(), string(doc))
			if err != nil {
				if me, ok := model.AsMalformed(err); ok {
					return fmt.Errorf("review gave up: %s", me.Reason)
				}
				return err
			}

			if outcome.Diff == "" {
				fmt.Println(styleMuted.Render("No changes."))
			} else {
				fmt.Println(styleHeading.Render("Changes"))
				printDiff(outcome.Diff)
			}

			if showIssues && len(outcome.Review.Issues) > 0 {
				fmt.Println()
				fmt.Println(styleHeading.Render("Issues"))
				printIssues(outcome.Review.Issues)
			}

			if pretty && outcome.UpdatedDoc != "" {
				rendered, err := glamour.Render(outcome.UpdatedDoc, "auto")
				if err != nil {
					return fmt.Errorf("render document: %w", err)
				}
				fmt.Println(rendered)
			}

			if write && outcome.Diff != "" {
				info, err := os.Stat(args[0])
				if err != nil {
					return err
				}
				if err := os.WriteFile(args[0], []byte(outcome.UpdatedDoc), info.Mode().Perm()); err != nil {
					return err
				}
				fmt.Println(styleMuted.Render("Wrote " + args[0]))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "write the reviewed document back in place")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "render the reviewed document to the terminal")
	cmd.Flags().BoolVar(&showIssues, "issues", true, "print the accepted issues")
	return cmd
}

func printDiff(diff string) {
	for _, line := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			fmt.Println(styleMuted.Render(line))
		case strings.HasPrefix(line, "+"):
			fmt.Println(styleAdded.Render(line))
		case strings.HasPrefix(line, "-"):
			fmt.Println(styleRemoved.Render(line))
		case strings.HasPrefix(line, "@@"):
			fmt.Println(styleMuted.Render(line))
		default:
			fmt.Println(line)
		}
	}
}

func printIssues(issues []model.Issue) {
	for _, issue := range issues {
		style, ok := styleBySeverity[issue.Severity]
		if !ok {
			style = styleMuted
		}
		fmt.Printf("%s %s\n", style.Render("["+string(issue.Severity)+"]"), issue.Message)
	}
	out, err := yaml.Marshal(issues)
	if err != nil {
		return
	}
	fmt.Println(styleMuted.Render(strings.TrimRight(string(out), "\n")))
}
