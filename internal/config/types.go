package config

import "strings"

// DeployType selects a deployer.
type DeployType string

const (
	DeployNone DeployType = "none"
	DeployGit  DeployType = "git"
)

// NormalizeDeployType maps user input onto a known DeployType, or "" when unknown.
func NormalizeDeployType(raw string) DeployType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "none", "noop":
		return DeployNone
	case "git":
		return DeployGit
	default:
		return ""
	}
}

// RetryBackoffMode selects how the delay between retries grows.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

// NormalizeRetryBackoffMode maps user input onto a known mode, or "" when unknown.
func NormalizeRetryBackoffMode(raw string) RetryBackoffMode {
	switch m := RetryBackoffMode(strings.ToLower(strings.TrimSpace(raw))); m {
	case RetryBackoffFixed, RetryBackoffLinear, RetryBackoffExponential:
		return m
	default:
		return ""
	}
}
