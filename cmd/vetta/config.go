package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/praxislabs/vetta/internal/config"
	"github.com/praxislabs/vetta/internal/gate"
)

// loadConfig reads and schema-validates the config file, then resolves the
// gate rules it points at.
func loadConfig(dataRoot string) (config.Config, gate.Rules, error) {
	path := viper.GetString("config")
	if path == "" {
		path = filepath.Join(".vetta", "config.json")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(dataRoot, path)
	}
	viper.SetConfigFile(path)
	viper.SetConfigType("json")
	if err := viper.ReadInConfig(); err != nil {
		return config.Config{}, gate.Rules{}, fmt.Errorf("read config: %w", err)
	}
	settings := viper.AllSettings()
	delete(settings, "config") // CLI flag, not part of the file schema
	if err := config.ValidateSettings(settings); err != nil {
		return config.Config{}, gate.Rules{}, err
	}
	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return config.Config{}, gate.Rules{}, fmt.Errorf("parse config: %w", err)
	}

	rulesPath := cfg.RulesFile
	if rulesPath != "" && !filepath.IsAbs(rulesPath) {
		rulesPath = filepath.Join(dataRoot, rulesPath)
	}
	rules, err := config.LoadRules(rulesPath)
	if err != nil {
		return config.Config{}, gate.Rules{}, err
	}
	return cfg, rules, nil
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage vetta configuration",
	}
	cmd.AddCommand(configValidateCmd())
	return cmd
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "validate",
		Short:        "Validate the config file and gate rules",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, dataDir, closeFn, err := openDB()
			if err != nil {
				return err
			}
			defer closeFn()

			cfg, rules, err := loadConfig(filepath.Dir(dataDir))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config ok: producer=%s stage_tags=%d similarity_threshold=%.2f\n",
				cfg.Producer.Type, len(rules.StageTags), rules.SimilarityThreshold)
			return nil
		},
	}
}
