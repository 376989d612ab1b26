package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"diagmend/internal/config"
	"diagmend/internal/repair"
	"diagmend/internal/validate"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the active repair rules per diagram type",
	RunE: func(cmd *cobra.Command, args []string) error {
		repairer := repair.NewRepairer()
		if path := cfg.Repair.CustomRulesPath; path != "" {
			rules, err := repair.LoadCustomRules(path)
			if err != nil {
				logger.Warn("custom rules not loaded", zap.String("path", path), zap.Error(err))
			} else {
				repairer.SetCustomRules(rules)
			}
		}

		types := append([]string(nil), cfg.Pipeline.DiagramTypes...)
		sort.Strings(types)
		for _, typ := range types {
			fmt.Fprintf(cmd.OutOrStdout(), "%s:\n", typ)
			for _, rule := range repairer.Rules(typ) {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", rule.ID)
			}
		}
		return nil
	},
}

var validatorsCmd = &cobra.Command{
	Use:   "validators",
	Short: "Show validator availability for each diagram type",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := validate.NewRegistry()
		validate.RegisterAllValidators(registry, cfg.GetValidatorTimeout())

		for _, typ := range registry.Types() {
			v, err := registry.Get(typ)
			if err != nil {
				continue
			}
			status := "available"
			if !v.IsAvailable() {
				status = "MISSING (blocks of this type pass through unvalidated)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", typ, status)
		}
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config to .diagmend/config.yaml",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath()
		if err := config.DefaultConfig().Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}
