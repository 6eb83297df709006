package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadConfig(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, ".vetta", "config.json"), `{
  "producer": {"type": "openai", "model": "gpt-4.1", "api_key_env": "OPENAI_API_KEY"},
  "retention": {"keep_last": 25}
}`)

	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("config", filepath.Join(".vetta", "config.json"))

	cfg, rules, err := loadConfig(root)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Producer.Type)
	assert.Equal(t, 25, cfg.Retention.KeepLast)
	// No rules file configured: the default gate rules apply.
	assert.InDelta(t, 0.70, rules.SimilarityThreshold, 0.001)
	assert.Contains(t, rules.StageTags, "idea_analysis")
}

func TestLoadConfigCustomRules(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, ".vetta", "config.json"), `{
  "producer": {"type": "exec", "cmd": ["analyst", "--json"]},
  "rules_file": ".vetta/rules.yaml"
}`)
	writeTestFile(t, filepath.Join(root, ".vetta", "rules.yaml"), `
stage_tags:
  - custom_stage
similarity_threshold: 0.9
`)

	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("config", filepath.Join(".vetta", "config.json"))

	cfg, rules, err := loadConfig(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"analyst", "--json"}, cfg.Producer.Cmd)
	assert.Equal(t, []string{"custom_stage"}, rules.StageTags)
	assert.InDelta(t, 0.9, rules.SimilarityThreshold, 0.001)
}

func TestLoadConfigRejectsUnknownProducerType(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, ".vetta", "config.json"), `{
  "producer": {"type": "smoke-signals"}
}`)

	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("config", filepath.Join(".vetta", "config.json"))

	_, _, err := loadConfig(root)
	require.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	root := t.TempDir()

	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("config", filepath.Join(".vetta", "config.json"))

	_, _, err := loadConfig(root)
	require.Error(t, err)
}
