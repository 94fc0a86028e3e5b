package storage

import (
	"testing"

	"github.com/OthmaneWahbi/gab-flow-insights/internal/config"
)

func TestSplitEndpoint(t *testing.T) {
	tests := []struct {
		endpoint   string
		useSSL     bool
		wantHost   string
		wantSecure bool
	}{
		{"https://s3.example.com", false, "s3.example.com", true},
		{"http://localhost:9000", true, "localhost:9000", false},
		{"localhost:9000", false, "localhost:9000", false},
		{"//minio:9000", true, "minio:9000", true},
	}
	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			host, secure := splitEndpoint(tt.endpoint, tt.useSSL)
			if host != tt.wantHost || secure != tt.wantSecure {
				t.Errorf("splitEndpoint(%q, %v) = %q, %v; want %q, %v", tt.endpoint, tt.useSSL, host, secure, tt.wantHost, tt.wantSecure)
			}
		})
	}
}

func TestNewMinioClient_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.MinioConfig
	}{
		{"no endpoint", config.MinioConfig{AccessKey: "a", SecretKey: "b", Bucket: "c"}},
		{"no credentials", config.MinioConfig{Endpoint: "localhost:9000", Bucket: "c"}},
		{"no bucket", config.MinioConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMinioClient(tt.cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestNewMinioClient(t *testing.T) {
	c, err := NewMinioClient(config.MinioConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    "gab-reference",
	})
	if err != nil {
		t.Fatalf("NewMinioClient: %v", err)
	}
	if c.bucket != "gab-reference" {
		t.Errorf("bucket = %q", c.bucket)
	}
}
