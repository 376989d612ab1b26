package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"diagmend/internal/diagram"
	"diagmend/internal/validate"
)

var checkCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Validate diagram blocks without fixing anything",
	Long: `Extracts diagram blocks and reports which ones fail validation. No
repairs are attempted and no LLM is contacted. Exits non-zero when any
block is invalid.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	text, _, err := readInput(args)
	if err != nil {
		return err
	}

	registry := validate.NewRegistry()
	validate.RegisterAllValidators(registry, cfg.GetValidatorTimeout())

	blocks := diagram.Extract(text, cfg.Pipeline.DiagramTypes)
	if len(blocks) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no diagram blocks found")
		return nil
	}

	invalid := 0
	for _, b := range blocks {
		v, err := registry.Get(b.Type)
		if err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "block %d (%s): %v\n", b.Index, b.Type, err)
			continue
		}
		vr := v.Validate(ctx, b.Code)
		switch {
		case vr.Unavailable:
			fmt.Fprintf(cmd.OutOrStdout(), "block %d (%s): skipped, %s\n", b.Index, b.Type, vr.Message)
		case vr.Valid:
			fmt.Fprintf(cmd.OutOrStdout(), "block %d (%s): ok\n", b.Index, b.Type)
		default:
			invalid++
			fmt.Fprintf(cmd.OutOrStdout(), "block %d (%s): INVALID\n  %s\n", b.Index, b.Type, vr.Message)
		}
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d diagram block(s) failed validation", invalid, len(blocks))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "all %d diagram block(s) valid\n", len(blocks))
	return nil
}
