package config

import (
	"net/mail"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Validate checks a configuration after defaults have been applied.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.URL, validation.By(absoluteURL)),
		validation.Field(&c.LayoutsDir, validation.Required, validation.By(relativeDir)),
		validation.Field(&c.PostsDir, validation.Required, validation.By(relativeDir)),
		validation.Field(&c.PrivatePrefix, validation.Required),
		validation.Field(&c.PageMarker, validation.Required, validation.By(func(value any) error {
			if strings.ContainsAny(value.(string), `/\`) {
				return validation.NewError("config.page_marker.separator", "must not contain a path separator")
			}
			return nil
		})),
		validation.Field(&c.Concurrency, validation.Min(1)),
		validation.Field(&c.Events),
		validation.Field(&c.Deploy),
	)
}

func (e EventsConfig) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.NATSURL, validation.By(absoluteURL)),
		validation.Field(&e.Subject, validation.Required),
		validation.Field(&e.RetryBackoff, validation.In(RetryBackoffFixed, RetryBackoffLinear, RetryBackoffExponential)),
		validation.Field(&e.RetryInitial, validation.Min(time.Duration(0))),
		validation.Field(&e.RetryMax, validation.Min(time.Duration(0))),
	)
}

func (d DeployConfig) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Type, validation.Required, validation.In(DeployNone, DeployGit)),
		validation.Field(&d.AuthorEmail, validation.When(d.Type == DeployGit, validation.Required, validation.By(func(value any) error {
			if _, err := mail.ParseAddress(value.(string)); err != nil {
				return validation.NewError("config.deploy.author_email", "must be an email address")
			}
			return nil
		}))),
	)
}

func absoluteURL(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return validation.NewError("config.url.absolute", "must be an absolute URL")
	}
	return nil
}

func relativeDir(value any) error {
	s, _ := value.(string)
	if filepath.IsAbs(s) || strings.HasPrefix(filepath.Clean(s), "..") {
		return validation.NewError("config.dir.relative", "must be a directory inside the site root")
	}
	return nil
}
