// Package client implements repository.ReadableClient and
// repository.WriteableClient over REST, directory, zip and single-file
// storage.
package client

import (
	"net/http"

	"assetrepo/internal/jsonbind"
	"assetrepo/internal/model"
	"assetrepo/internal/repository"
)

type options struct {
	logger     repository.Logger
	httpClient *http.Client
	strict     bool
	ignore     []string
}

// Option configures a client.
type Option func(*options)

func WithLogger(l repository.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithHTTPClient replaces the REST client's transport.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithStrictUnknownFields rejects asset JSON with unrecognised fields.
func WithStrictUnknownFields(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

// WithIgnore skips files matching patterns in directory and zip
// repositories, in addition to those listed in their .assetignore file.
func WithIgnore(patterns []string) Option {
	return func(o *options) { o.ignore = patterns }
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = repository.LoggerOrNop(o.logger)
	return o
}

func (o options) decode() jsonbind.Options {
	return jsonbind.Options{StrictUnknownFields: o.strict}
}

func normalizeAll(assets []*model.Asset) []*model.Asset {
	for _, a := range assets {
		a.Normalize()
	}
	return assets
}
