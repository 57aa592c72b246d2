package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = "30s"
)

// envKeys are the recognized environment variables. Each is bound explicitly
// so the documented names stay authoritative.
var envKeys = []string{
	"BITBUCKET_PR_ID",
	"BITBUCKET_WORKSPACE",
	"BITBUCKET_REPO_SLUG",
	"BITBUCKET_ACCESS_TOKEN",
	"BITBUCKET_USERNAME",
	"BITBUCKET_APP_PASSWORD",
	"OPENAI_API_KEY",
	"OPENAI_BASE_URL",
	"MODEL",
	"ORGANIZATION",
	"CHATGPT_PROMPT_MAX_TOKENS",
	"MESSAGE",
	"FILES_TO_REVIEW",
	"CHATGPT_COMPLETION_FILEPATH",
	"CHATGPT_CLIENT_FILEPATH",
	"HTTP_TIMEOUT",
}

// clientParams are the YAML-file overrides for the AI client itself.
// File values take precedence over environment defaults.
type clientParams struct {
	BaseURL      string `yaml:"base_url"`
	Organization string `yaml:"organization"`
	Timeout      string `yaml:"timeout"`
}

// Load builds the immutable configuration with the documented precedence:
// built-in defaults < environment variables < YAML parameter files.
// It returns a *Error when required settings are missing or malformed.
func Load() (Config, error) {
	v := viper.New()
	v.AllowEmptyEnv(false)
	for _, key := range envKeys {
		// BindEnv with one argument resolves the uppercase key name.
		if err := v.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	v.SetDefault("OPENAI_BASE_URL", defaultBaseURL)
	v.SetDefault("CHATGPT_PROMPT_MAX_TOKENS", 0)
	v.SetDefault("HTTP_TIMEOUT", defaultTimeout)

	prID := 0
	if raw := v.GetString("BITBUCKET_PR_ID"); raw != "" {
		parsed, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || parsed <= 0 {
			return Config{}, &Error{Reason: fmt.Sprintf("BITBUCKET_PR_ID must be a positive integer, got %q", raw)}
		}
		prID = parsed
	}

	cfg := Config{
		Workspace:     v.GetString("BITBUCKET_WORKSPACE"),
		RepoSlug:      v.GetString("BITBUCKET_REPO_SLUG"),
		PullRequestID: prID,
		Credentials:   resolveCredentials(v),
		AI: AIConfig{
			APIKey:          v.GetString("OPENAI_API_KEY"),
			BaseURL:         v.GetString("OPENAI_BASE_URL"),
			Organization:    v.GetString("ORGANIZATION"),
			Model:           v.GetString("MODEL"),
			SystemMessage:   v.GetString("MESSAGE"),
			MaxPromptTokens: v.GetInt("CHATGPT_PROMPT_MAX_TOKENS"),
		},
		FilesToReview: splitFileList(v.GetString("FILES_TO_REVIEW")),
	}

	timeout, err := time.ParseDuration(v.GetString("HTTP_TIMEOUT"))
	if err != nil || timeout < 0 {
		return Config{}, &Error{Reason: fmt.Sprintf("HTTP_TIMEOUT is not a valid duration: %q", v.GetString("HTTP_TIMEOUT"))}
	}
	cfg.HTTPTimeout = timeout

	if path := v.GetString("CHATGPT_CLIENT_FILEPATH"); path != "" {
		if err := applyClientParams(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if path := v.GetString("CHATGPT_COMPLETION_FILEPATH"); path != "" {
		params, err := loadYAMLMap(path)
		if err != nil {
			return Config{}, err
		}
		cfg.AI.CompletionParams = params
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// resolveCredentials decides the credential scheme once, preferring the
// username/app-password pair when both forms are set.
func resolveCredentials(v *viper.Viper) Credentials {
	username := v.GetString("BITBUCKET_USERNAME")
	password := v.GetString("BITBUCKET_APP_PASSWORD")
	token := v.GetString("BITBUCKET_ACCESS_TOKEN")

	if username != "" && password != "" {
		return Credentials{Scheme: AuthBasic, Username: username, AppPassword: password}
	}
	return Credentials{Scheme: AuthBearer, Token: token}
}

// applyClientParams overlays the client parameter file onto the config.
func applyClientParams(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &Error{Reason: fmt.Sprintf("client parameter file %s: %v", path, err)}
	}

	var params clientParams
	if err := yaml.Unmarshal(data, &params); err != nil {
		return &Error{Reason: fmt.Sprintf("client parameter file %s: %v", path, err)}
	}

	if params.BaseURL != "" {
		cfg.AI.BaseURL = params.BaseURL
	}
	if params.Organization != "" {
		cfg.AI.Organization = params.Organization
	}
	if params.Timeout != "" {
		timeout, err := time.ParseDuration(params.Timeout)
		if err != nil || timeout < 0 {
			return &Error{Reason: fmt.Sprintf("client parameter file %s: invalid timeout %q", path, params.Timeout)}
		}
		cfg.HTTPTimeout = timeout
	}

	return nil
}

// loadYAMLMap reads a YAML document into a generic map. The file must exist
// when its path is configured.
func loadYAMLMap(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Reason: fmt.Sprintf("completion parameter file %s: %v", path, err)}
	}

	params := map[string]any{}
	if err := yaml.Unmarshal(data, &params); err != nil {
		return nil, &Error{Reason: fmt.Sprintf("completion parameter file %s: %v", path, err)}
	}
	return params, nil
}

func splitFileList(raw string) []string {
	if raw == "" {
		return nil
	}
	var files []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			files = append(files, part)
		}
	}
	return files
}
