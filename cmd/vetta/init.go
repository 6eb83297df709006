// Package main provides the entry point for the vetta CLI.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/praxislabs/vetta/internal/gate"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "init",
		Short:        "Initialize a vetta workspace",
		Long:         "Creates the .vetta directory with a default config and the default gate rules.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}

			dataDir := filepath.Join(cwd, ".vetta")
			log.Info().Str("dir", dataDir).Msg("creating vetta directory")
			if err := os.MkdirAll(filepath.Join(dataDir, "runs"), 0o755); err != nil {
				return fmt.Errorf("create runs dir: %w", err)
			}
			if err := os.MkdirAll(filepath.Join(dataDir, "locks"), 0o755); err != nil {
				return fmt.Errorf("create locks dir: %w", err)
			}

			configPath := filepath.Join(dataDir, "config.json")
			if _, err := os.Stat(configPath); err == nil {
				log.Info().Msg("config.json already exists, skipping")
			} else {
				log.Info().Str("path", configPath).Msg("installing default config")
				defaultConfig := map[string]any{
					"producer": map[string]any{
						"type":  "gemini",
						"model": "gemini-2.5-flash",
					},
					"rules_file": filepath.Join(".vetta", "rules.yaml"),
					"retention": map[string]any{
						"keep_last": 50,
					},
				}
				data, err := json.MarshalIndent(defaultConfig, "", "  ")
				if err != nil {
					return err
				}
				if err := os.WriteFile(configPath, append(data, '\n'), 0o644); err != nil {
					return fmt.Errorf("write config: %w", err)
				}
			}

			rulesPath := filepath.Join(dataDir, "rules.yaml")
			if _, err := os.Stat(rulesPath); err == nil {
				log.Info().Msg("rules.yaml already exists, skipping")
			} else {
				log.Info().Str("path", rulesPath).Msg("installing default gate rules")
				data, err := yaml.Marshal(gate.DefaultRules())
				if err != nil {
					return err
				}
				if err := os.WriteFile(rulesPath, data, 0o644); err != nil {
					return fmt.Errorf("write rules: %w", err)
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), "vetta workspace initialized")
			return nil
		},
	}
}
