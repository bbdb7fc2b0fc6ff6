package client

import (
	"testing"

	"assetrepo/internal/config"
	"assetrepo/internal/repository"
)

func TestNewClientFromConfig(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.RepositoryConfig
		wantErr  bool
		writable bool
	}{
		{name: "rest", cfg: config.RepositoryConfig{Type: config.TypeREST, URL: "http://localhost:9080/ma/v1", ReadTimeoutSeconds: 5}, writable: true},
		{name: "rest headers auth", cfg: config.RepositoryConfig{Type: config.TypeREST, URL: "https://repo.example.com", Auth: "headers"}, writable: true},
		{name: "rest without url", cfg: config.RepositoryConfig{Type: config.TypeREST}, wantErr: true},
		{name: "rest with bad auth", cfg: config.RepositoryConfig{Type: config.TypeREST, URL: "http://x", Auth: "token"}, wantErr: true},
		{name: "directory", cfg: config.RepositoryConfig{Type: config.TypeDirectory, Path: "/srv/repo"}},
		{name: "directory without path", cfg: config.RepositoryConfig{Type: config.TypeDirectory}, wantErr: true},
		{name: "zip", cfg: config.RepositoryConfig{Type: config.TypeZip, Path: "/srv/repo.zip"}},
		{name: "zip without path", cfg: config.RepositoryConfig{Type: config.TypeZip}, wantErr: true},
		{name: "single file", cfg: config.RepositoryConfig{Type: config.TypeSingleFile, Path: "/srv/repo.json"}, writable: true},
		{name: "single file without path", cfg: config.RepositoryConfig{Type: config.TypeSingleFile}, wantErr: true},
		{name: "unknown", cfg: config.RepositoryConfig{Type: "ftp"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClientFromConfig(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewClientFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if c == nil {
				t.Fatal("NewClientFromConfig() returned nil client")
			}
			_, writable := c.(repository.WriteableClient)
			if writable != tt.writable {
				t.Errorf("client writable = %v, want %v", writable, tt.writable)
			}
		})
	}
}
