package client

import (
	"fmt"
	"time"

	"assetrepo/internal/config"
	"assetrepo/internal/repository"
)

// NewClientFromConfig creates a repository client based on the repository
// config type. Directory and zip repositories are read-only; callers that
// write must check for repository.WriteableClient.
func NewClientFromConfig(cfg config.RepositoryConfig, opts ...Option) (repository.ReadableClient, error) {
	switch cfg.Type {
	case config.TypeREST:
		if cfg.URL == "" {
			return nil, fmt.Errorf("rest repository %q requires url to be set", cfg.Name)
		}
		return NewRESTClient(RESTConfig{
			BaseURL:     cfg.URL,
			APIKey:      cfg.APIKey,
			UserID:      cfg.UserID,
			Password:    cfg.Password,
			Auth:        AuthStyle(cfg.Auth),
			ReadTimeout: time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		}, opts...)
	case config.TypeDirectory:
		if cfg.Path == "" {
			return nil, fmt.Errorf("directory repository %q requires path to be set", cfg.Name)
		}
		return NewDirectoryClient(cfg.Path, append(opts, WithIgnore(cfg.Ignore))...), nil
	case config.TypeZip:
		if cfg.Path == "" {
			return nil, fmt.Errorf("zip repository %q requires path to be set", cfg.Name)
		}
		return NewZipClient(cfg.Path, append(opts, WithIgnore(cfg.Ignore))...), nil
	case config.TypeSingleFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("singlefile repository %q requires path to be set", cfg.Name)
		}
		return NewSingleFileClient(cfg.Path, opts...), nil
	default:
		return nil, fmt.Errorf("unknown repository type: %s", cfg.Type)
	}
}
