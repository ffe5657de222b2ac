package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vivekr077/CodePilot/internal/config"
)

func TestNewObjectStore_EndpointForms(t *testing.T) {
	cases := []struct {
		name     string
		cfg      config.StorageConfig
		wantHost string
		wantTLS  bool
	}{
		{"bare host", config.StorageConfig{Endpoint: "minio:9000"}, "minio:9000", false},
		{"bare host tls", config.StorageConfig{Endpoint: "s3.example.com", UseSSL: true}, "s3.example.com", true},
		{"https url", config.StorageConfig{Endpoint: "https://s3.example.com"}, "s3.example.com", true},
		{"http url overrides flag", config.StorageConfig{Endpoint: "http://minio:9000", UseSSL: true}, "minio:9000", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.BucketArchive = "codepilot-generations"
			store, err := NewObjectStore(tc.cfg)
			require.NoError(t, err)

			u := store.Client().EndpointURL()
			assert.Equal(t, tc.wantHost, u.Host)
			if tc.wantTLS {
				assert.Equal(t, "https", u.Scheme)
			} else {
				assert.Equal(t, "http", u.Scheme)
			}
			assert.Equal(t, "codepilot-generations", store.Bucket())
		})
	}
}
