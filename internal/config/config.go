// Package config provides configuration loading and management for vetta.
package config

// Config is the root configuration.
type Config struct {
	Producer  ProducerConfig  `json:"producer"            mapstructure:"producer"`
	RulesFile string          `json:"rules_file,omitempty" mapstructure:"rules_file"`
	Retention RetentionPolicy `json:"retention"           mapstructure:"retention"`
}

// ProducerConfig describes the external evidence producer.
type ProducerConfig struct {
	Type      string   `json:"type"                  mapstructure:"type"`
	Model     string   `json:"model,omitempty"       mapstructure:"model"`
	BaseURL   string   `json:"base_url,omitempty"    mapstructure:"base_url"`
	APIKey    string   `json:"api_key,omitempty"     mapstructure:"api_key"`
	APIKeyEnv string   `json:"api_key_env,omitempty" mapstructure:"api_key_env"`
	Cmd       []string `json:"cmd,omitempty"         mapstructure:"cmd"`
	Timeout   int      `json:"timeout,omitempty"     mapstructure:"timeout"`
}

// RetentionPolicy defines how many old runs to keep.
type RetentionPolicy struct {
	KeepLast int `json:"keep_last,omitempty" mapstructure:"keep_last"`
	KeepDays int `json:"keep_days,omitempty" mapstructure:"keep_days"`
}
