package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"diagmend/internal/correct"
	"diagmend/internal/perception"
	"diagmend/internal/pipeline"
	"diagmend/internal/repair"
	"diagmend/internal/validate"
)

var (
	fixOutput  string
	fixInPlace bool
	fixTimeout time.Duration
)

var fixCmd = &cobra.Command{
	Use:   "fix [file]",
	Short: "Validate and fix every diagram block in a file or stdin",
	Long: `Runs the full pipeline over the input: extract diagram blocks, validate
them, apply pattern repairs, escalate unfixed blocks to AI correction, and
write the reassembled text.

Reads stdin when no file is given. Without an LLM provider configured
(OPENAI_API_KEY, ZAI_API_KEY or GEMINI_API_KEY), pattern repair still runs
but blocks needing AI correction are reported as failed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFix,
}

func init() {
	fixCmd.Flags().StringVarP(&fixOutput, "output", "o", "", "Write result to this file (default: stdout)")
	fixCmd.Flags().BoolVarP(&fixInPlace, "in-place", "i", false, "Rewrite the input file in place")
	fixCmd.Flags().DurationVar(&fixTimeout, "timeout", 5*time.Minute, "Overall run timeout")
}

func runFix(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), fixTimeout)
	defer cancel()

	// Graceful shutdown: in-flight validator subprocesses are killed via the
	// context, partial blocks report as failed.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	text, inputPath, err := readInput(args)
	if err != nil {
		return err
	}

	runner, watcher, err := buildRunner(ctx, true)
	if err != nil {
		return err
	}
	if watcher != nil {
		defer watcher.Stop()
	}

	start := time.Now()
	res := runner.Run(ctx, text)
	logger.Info("pipeline finished",
		zap.Int("blocks", len(res.Outcomes)),
		zap.Int("fixed", res.Fixed()),
		zap.Int("failed", res.Failed()),
		zap.Duration("elapsed", time.Since(start)))

	if err := writeOutput(res.FinalText, inputPath); err != nil {
		return err
	}
	printSummary(cmd.ErrOrStderr(), res)
	return nil
}

// buildRunner wires the pipeline collaborators from config. withAI controls
// whether an LLM client is constructed; check mode skips it.
func buildRunner(ctx context.Context, withAI bool) (*pipeline.Runner, *repair.RulesWatcher, error) {
	registry := validate.NewRegistry()
	validate.RegisterAllValidators(registry, cfg.GetValidatorTimeout())

	repairer := repair.NewRepairer()
	var watcher *repair.RulesWatcher
	if path := cfg.Repair.CustomRulesPath; path != "" {
		rules, err := repair.LoadCustomRules(path)
		if err != nil {
			logger.Warn("custom rules not loaded", zap.String("path", path), zap.Error(err))
		} else {
			repairer.SetCustomRules(rules)
		}
		if cfg.Repair.WatchCustomRules {
			watcher, err = repair.NewRulesWatcher(path, repairer)
			if err != nil {
				logger.Warn("custom rules watcher unavailable", zap.Error(err))
			} else if err := watcher.Start(ctx); err != nil {
				logger.Warn("custom rules watcher failed to start", zap.Error(err))
			}
		}
	}

	var client perception.LLMClient
	if withAI {
		var err error
		client, err = perception.NewClient(ctx, cfg.LLM)
		if err != nil {
			if !errors.Is(err, perception.ErrNoProvider) {
				return nil, nil, err
			}
			logger.Warn("AI correction disabled", zap.Error(err))
			client = nil
		}
	}

	return pipeline.NewRunner(cfg, registry, repairer, correct.NewOrchestrator(client)), watcher, nil
}

func readInput(args []string) (text, path string, err error) {
	if len(args) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), "", nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return string(data), args[0], nil
}

func writeOutput(text, inputPath string) error {
	switch {
	case fixInPlace:
		if inputPath == "" {
			return fmt.Errorf("--in-place requires a file argument")
		}
		return os.WriteFile(inputPath, []byte(text), 0644)
	case fixOutput != "":
		return os.WriteFile(fixOutput, []byte(text), 0644)
	default:
		_, err := io.WriteString(os.Stdout, text)
		return err
	}
}
