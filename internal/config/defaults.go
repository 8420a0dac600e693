package config

import "runtime"

const (
	DefaultLayoutsDir    = "_layouts"
	LegacyLayoutsDir     = "_layout" // Used when the default directory is absent
	DefaultPostsDir      = "_posts"
	DefaultPrivatePrefix = "_"
	DefaultPageMarker    = "_"
	DefaultEventSubject  = "sitebuilder.build"
	DefaultEventRetries  = 2
	DefaultDeployMessage = "Site build"
	DefaultDeployAuthor  = "sitebuilder"
	DefaultDeployEmail   = "sitebuilder@localhost"
)

// DefaultApplier applies defaults for one configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// SiteDefaultApplier handles source layout conventions.
type SiteDefaultApplier struct{}

func (SiteDefaultApplier) Domain() string { return "site" }

func (SiteDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.LayoutsDir == "" {
		cfg.LayoutsDir = DefaultLayoutsDir
	}
	if cfg.PostsDir == "" {
		cfg.PostsDir = DefaultPostsDir
	}
	if cfg.PrivatePrefix == "" {
		cfg.PrivatePrefix = DefaultPrivatePrefix
	}
	if cfg.PageMarker == "" {
		cfg.PageMarker = DefaultPageMarker
	}
	if cfg.Vars == nil {
		cfg.Vars = map[string]any{}
	}
	return nil
}

// BuildDefaultApplier handles build execution settings.
type BuildDefaultApplier struct{}

func (BuildDefaultApplier) Domain() string { return "build" }

func (BuildDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.NumCPU()
	}
	if cfg.Events.Subject == "" {
		cfg.Events.Subject = DefaultEventSubject
	}
	if cfg.Events.Retries == 0 {
		cfg.Events.Retries = DefaultEventRetries
	}
	if m := NormalizeRetryBackoffMode(string(cfg.Events.RetryBackoff)); m != "" {
		cfg.Events.RetryBackoff = m
	} else if cfg.Events.RetryBackoff == "" {
		cfg.Events.RetryBackoff = RetryBackoffLinear
	}
	return nil
}

// DeployDefaultApplier handles deployer settings. An unrecognized type is left
// as written so validation can report it.
type DeployDefaultApplier struct{}

func (DeployDefaultApplier) Domain() string { return "deploy" }

func (DeployDefaultApplier) ApplyDefaults(cfg *Config) error {
	if t := NormalizeDeployType(string(cfg.Deploy.Type)); t != "" {
		cfg.Deploy.Type = t
	}
	if cfg.Deploy.Type == DeployGit {
		if cfg.Deploy.AuthorName == "" {
			cfg.Deploy.AuthorName = DefaultDeployAuthor
		}
		if cfg.Deploy.AuthorEmail == "" {
			cfg.Deploy.AuthorEmail = DefaultDeployEmail
		}
		if cfg.Deploy.Message == "" {
			cfg.Deploy.Message = DefaultDeployMessage
		}
	}
	return nil
}

func defaultAppliers() []DefaultApplier {
	return []DefaultApplier{SiteDefaultApplier{}, BuildDefaultApplier{}, DeployDefaultApplier{}}
}

func applyDefaults(cfg *Config) error {
	for _, a := range defaultAppliers() {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}
