// junie-action runs one agent task inside a GitHub Actions job. It reads the
// triggering event from GITHUB_EVENT_PATH, decides whether the workflow was
// addressed to Junie, and if so executes the run and publishes step outputs.
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/juniehq/junie-agent/internal/config"
	"github.com/juniehq/junie-agent/internal/event"
	"github.com/juniehq/junie-agent/internal/ghoutput"
	"github.com/juniehq/junie-agent/internal/github"
	"github.com/juniehq/junie-agent/internal/githubapp"
	"github.com/juniehq/junie-agent/internal/prompt"
	"github.com/juniehq/junie-agent/internal/run"
	"github.com/juniehq/junie-agent/internal/trigger"
)

func main() {
	if err := execute(os.Args[1:]); err != nil {
		log.Fatalf("junie-action failed: %v", err)
	}
}

func execute(args []string) error {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	return cmd.Execute()
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "junie-action",
		Short:         "Run a Junie agent task from a GitHub Actions event",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAction(cmd)
		},
	}

	cmd.AddCommand(newCleanupCommand())
	return cmd
}

func runAction(cmd *cobra.Command) error {
	_ = godotenv.Load()

	cfg, err := config.LoadAction()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	eventName := os.Getenv("GITHUB_EVENT_NAME")
	eventPath := os.Getenv("GITHUB_EVENT_PATH")
	if eventName == "" || eventPath == "" {
		return fmt.Errorf("GITHUB_EVENT_NAME and GITHUB_EVENT_PATH are required")
	}

	payload, err := os.ReadFile(eventPath)
	if err != nil {
		return fmt.Errorf("failed to read event payload: %w", err)
	}

	ev, err := event.Parse(eventName, payload)
	if err != nil {
		return err
	}

	triggers := trigger.Config{
		Phrase:          cfg.TriggerPhrase,
		AssigneeTrigger: cfg.AssigneeTrigger,
		LabelTrigger:    cfg.LabelTrigger,
	}

	// An explicit prompt input runs unconditionally; anything else requires
	// a trigger in the event.
	explicit := cfg.Prompt != ""
	if !explicit {
		if ev.TriggerComment != nil && ev.TriggerComment.IsBot {
			log.Printf("Ignoring event: trigger comment is from bot %s", ev.TriggerComment.User)
			return ghoutput.Write(map[string]string{"triggered": "false"})
		}
		if !trigger.Detect(ev.Descriptor, triggers) {
			log.Printf("No trigger found in %s/%s", ev.Descriptor.Kind, ev.Descriptor.Action)
			return ghoutput.Write(map[string]string{"triggered": "false"})
		}
	}

	instruction := cfg.Prompt
	if instruction == "" && ev.TriggerComment != nil {
		instruction, _ = prompt.ExtractInstruction(ev.TriggerComment.Body, cfg.TriggerPhrase)
	}

	auth := &githubapp.AppAuth{
		AppID:      cfg.GitHubAppID,
		PrivateKey: cfg.GitHubPrivateKey,
	}

	runner := run.New(cfg, auth)
	outcome, err := runner.Execute(cmd.Context(), &run.Request{
		Event:       ev,
		Instruction: instruction,
	})
	if err != nil {
		_ = ghoutput.Write(map[string]string{"triggered": "true", "conclusion": "failure"})
		return err
	}

	return ghoutput.Write(map[string]string{
		"triggered":   "true",
		"conclusion":  "success",
		"branch":      outcome.WorkingBranch,
		"branch_url":  outcome.BranchURL,
		"pr_url":      outcome.PRURL,
		"summary":     outcome.Summary,
		"has_changes": strconv.FormatBool(outcome.HasChanges),
	})
}

func newCleanupCommand() *cobra.Command {
	var (
		repo       string
		maxAgeDays int
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete stale junie/* working branches",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()

			if repo == "" {
				repo = os.Getenv("GITHUB_REPOSITORY")
			}
			owner, name, ok := strings.Cut(repo, "/")
			if !ok {
				return fmt.Errorf("repository must be in owner/name form, got %q", repo)
			}

			auth := &githubapp.AppAuth{
				AppID:      os.Getenv("GITHUB_APP_ID"),
				PrivateKey: os.Getenv("GITHUB_PRIVATE_KEY"),
			}
			token, err := auth.GetInstallationToken(repo)
			if err != nil {
				return fmt.Errorf("failed to authenticate: %w", err)
			}

			client := github.NewClient(owner, name, token.Token)
			deleted, err := client.CleanupStaleBranches(cmd.Context(), github.CleanupOptions{
				MaxAge: time.Duration(maxAgeDays) * 24 * time.Hour,
				DryRun: dryRun,
			})
			if err != nil {
				return fmt.Errorf("cleanup failed: %w", err)
			}

			for _, branch := range deleted {
				if dryRun {
					log.Printf("Would delete %s", branch)
				} else {
					log.Printf("Deleted %s", branch)
				}
			}
			log.Printf("Cleanup done: %d stale branch(es)", len(deleted))

			return ghoutput.Write(map[string]string{
				"deleted_count": strconv.Itoa(len(deleted)),
				"deleted":       strings.Join(deleted, " "),
			})
		},
	}

	cmd.Flags().StringVar(&repo, "repo", "", "Repository in owner/name form (defaults to GITHUB_REPOSITORY)")
	cmd.Flags().IntVar(&maxAgeDays, "max-age-days", 30, "Delete branches with no commits for this many days")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report stale branches without deleting them")

	return cmd
}
