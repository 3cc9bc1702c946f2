package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "local defaults",
			env:  map[string]string{"DATABASE_URI": "postgres://localhost/clinic"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, EnvLocal, cfg.Env)
				assert.Equal(t, ":8080", cfg.Server.RunAddress)
				assert.Equal(t, localSecret, cfg.Auth.Secret)
				assert.Equal(t, 24*time.Hour, cfg.Auth.AccessTTL)
				assert.Equal(t, "migrations", cfg.DB.Migrations)
			},
		},
		{
			name: "explicit values",
			env: map[string]string{
				"DATABASE_URI":     "postgres://db/clinic",
				"APP_ENV":          EnvProd,
				"JWT_SECRET":       "s3cr3t",
				"ACCESS_TOKEN_TTL": "1h",
				"RUN_ADDRESS":      ":9090",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "s3cr3t", cfg.Auth.Secret)
				assert.Equal(t, time.Hour, cfg.Auth.AccessTTL)
				assert.Equal(t, ":9090", cfg.Server.RunAddress)
			},
		},
		{
			name:    "missing database",
			env:     map[string]string{},
			wantErr: true,
		},
		{
			name:    "prod without secret",
			env:     map[string]string{"DATABASE_URI": "postgres://db/clinic", "APP_ENV": EnvProd},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}
