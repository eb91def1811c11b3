package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xvetrov/deskpilot/api/schemas"
	"github.com/xvetrov/deskpilot/internal/action"
	"github.com/xvetrov/deskpilot/internal/agent"
	"github.com/xvetrov/deskpilot/internal/automation"
	"github.com/xvetrov/deskpilot/internal/config"
	"github.com/xvetrov/deskpilot/internal/llmclient"
	"github.com/xvetrov/deskpilot/internal/locator"
	"github.com/xvetrov/deskpilot/internal/observability"
	"github.com/xvetrov/deskpilot/internal/planner"
)

// newRunCmd creates and configures the `run` command.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run \"task description\"",
		Short: "Plans and executes a natural-language desktop task",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags to their corresponding Viper keys so command-line
			// flags correctly override config file and environment values.
			if err := viper.BindPFlag("agent.max_task_duration", cmd.Flags().Lookup("timeout")); err != nil {
				return err
			}
			if err := viper.BindPFlag("agent.max_retries", cmd.Flags().Lookup("max-retries")); err != nil {
				return err
			}
			if err := viper.BindPFlag("agent.max_turns", cmd.Flags().Lookup("max-turns")); err != nil {
				return err
			}
			if err := viper.BindPFlag("agent.verify_actions", cmd.Flags().Lookup("verify")); err != nil {
				return err
			}
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Use the context passed from Execute (signal-aware).
			ctx := cmd.Context()
			logger := observability.GetLogger()
			task := args[0]

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			components, err := initializeTaskComponents(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize task components: %w", err)
			}

			if viper.GetBool("dry-run") {
				return printPlanOnly(ctx, components, task)
			}

			logger.Info("Starting task",
				zap.String("task", task),
				zap.Int("max_turns", cfg.Agent.MaxTurns),
				zap.Duration("max_duration", cfg.Agent.MaxTaskDuration),
			)

			feed := agent.NewProgressFeed(32)
			runner := agent.New(cfg.Agent, components.Executor, components.Planner, components.Driver, feed, components.Locale, logger)

			// The progress printer drains the feed until the agent closes it
			// at the end of the run.
			var g errgroup.Group
			g.Go(func() error {
				for u := range feed.Updates() {
					fmt.Printf("[%d/%d] %-10s %s\n", u.StepIndex+1, u.Total, u.Status, u.Message)
				}
				return nil
			})

			outcome := runner.RunTask(ctx, task)
			_ = g.Wait()

			printOutcome(outcome)

			switch outcome.Status {
			case schemas.TaskSucceeded, schemas.TaskPartiallyDone:
				return nil
			case schemas.TaskAborted:
				return fmt.Errorf("task aborted: %s", outcome.Summary)
			default:
				return fmt.Errorf("task %s: %s", outcome.Status, outcome.Summary)
			}
		},
	}

	runCmd.Flags().Bool("dry-run", false, "Plan the task and print the steps without executing anything.")
	runCmd.Flags().DurationP("timeout", "t", 5*time.Minute, "Wall-clock deadline for the whole task. (Overrides config/env)")
	runCmd.Flags().IntP("max-retries", "r", 3, "Per-step retry ceiling before AI correction. (Overrides config/env)")
	runCmd.Flags().Int("max-turns", 40, "Maximum step dispatches for this task. (Overrides config/env)")
	runCmd.Flags().Bool("verify", true, "Verify action outcomes with AI vision. (Overrides config/env)")

	return runCmd
}

// taskComponents holds the initialized services for one run.
type taskComponents struct {
	Driver   *automation.RobotDriver
	Executor *action.Executor
	Planner  *planner.Planner
	Locale   string
}

// initializeTaskComponents handles dependency injection.
func initializeTaskComponents(cfg *config.Config, logger *zap.Logger) (*taskComponents, error) {
	components := &taskComponents{Locale: detectLocale()}

	// 1. LLM router (fast and powerful tiers behind one rate limit).
	router, err := llmclient.NewRouterFromConfig(cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize model router: %w", err)
	}

	// 2. Action registry and planner. The planner's prompt carries the
	// registry vocabulary so the model only emits known actions.
	registry := action.NewRegistry()
	components.Planner = planner.New(router, registry.Names(), logger)

	// 3. Automation driver and target resolution.
	components.Driver = automation.NewRobotDriver(cfg.Automation, logger)
	resolver := locator.NewResolver(components.Driver, components.Planner, logger)

	// 4. Executor.
	components.Executor = action.NewExecutor(registry, components.Driver, resolver, cfg.Agent, cfg.Automation, components.Locale, logger)

	return components, nil
}

// printPlanOnly asks the planner for a plan and renders it without touching
// the desktop.
func printPlanOnly(ctx context.Context, components *taskComponents, task string) error {
	env := snapshotEnvironment(ctx, components.Driver, components.Locale)

	plan, err := components.Planner.Plan(ctx, task, env)
	if err != nil {
		return err
	}

	fmt.Printf("Plan: %s\n", plan.Summary)
	for i, s := range plan.Steps {
		fmt.Printf("  %2d. %s %q", i+1, s.Action, s.Target)
		if s.ExpectedOutcome != "" {
			fmt.Printf("  (expect: %s)", s.ExpectedOutcome)
		}
		fmt.Println()
	}
	if plan.SuccessCriteria != "" {
		fmt.Printf("Success criteria: %s\n", plan.SuccessCriteria)
	}
	return nil
}

func snapshotEnvironment(ctx context.Context, driver *automation.RobotDriver, locale string) schemas.EnvironmentContext {
	env := schemas.EnvironmentContext{Locale: locale}
	env.ScreenWidth, env.ScreenHeight = driver.ScreenSize()
	if title, err := driver.ActiveWindowTitle(); err == nil {
		env.ActiveWindow = title
	}
	if windows, err := driver.ListWindows(ctx); err == nil {
		for _, w := range windows {
			env.OpenWindows = append(env.OpenWindows, w.Title)
		}
	}
	return env
}

func printOutcome(outcome *schemas.TaskOutcome) {
	fmt.Printf("\nTask %s (%s)\n", outcome.Status, outcome.Elapsed.Round(time.Millisecond))
	if outcome.Summary != "" {
		fmt.Printf("Summary: %s\n", outcome.Summary)
	}
	for _, rec := range outcome.History {
		line := fmt.Sprintf("  step %d: %s %q -> %s", rec.Index+1, rec.Step.Action, rec.Step.Target, rec.Status)
		if rec.RetryCount > 0 {
			line += fmt.Sprintf(" (retries: %d)", rec.RetryCount)
		}
		if rec.LastError != "" {
			line += " [" + rec.LastError + "]"
		}
		fmt.Println(line)
	}
}

// detectLocale reads the desktop locale from the environment, e.g.
// "de_DE.UTF-8" becomes "de_DE". Localized window titles depend on it.
func detectLocale() string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := os.Getenv(key); v != "" && v != "C" && v != "POSIX" {
			if i := strings.IndexByte(v, '.'); i > 0 {
				return v[:i]
			}
			return v
		}
	}
	return "en_US"
}
