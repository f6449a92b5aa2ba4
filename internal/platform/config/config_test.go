package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("LICENSING_ADDR", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("LICENSE_VALIDITY_YEARS", "")

	cfg := FromEnv()
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10, cfg.License.ValidityYears)
	assert.Equal(t, 12, cfg.License.InitialPoints)
	assert.Equal(t, 50, cfg.Exam.PassThreshold)
	assert.Equal(t, 2*time.Hour, cfg.Exam.OpensBefore)
	assert.Equal(t, 4*time.Hour, cfg.Exam.ClosesAfter)
	assert.Equal(t, "licensing.notifications", cfg.Kafka.Topic)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("LICENSE_JURISDICTION", "jkt")
	t.Setenv("EXAM_WINDOW_OPENS_BEFORE", "30m")
	t.Setenv("REQUIRE_AUTH", "true")
	t.Setenv("LICENSE_VALIDITY_YEARS", "not-a-number")

	cfg := FromEnv()
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "JKT", cfg.License.Jurisdiction)
	assert.Equal(t, 30*time.Minute, cfg.Exam.OpensBefore)
	assert.True(t, cfg.Auth.RequireAuth)
	assert.Equal(t, 10, cfg.License.ValidityYears)
}

func TestFromEnvPhotoAndProxySettings(t *testing.T) {
	t.Setenv("PHOTO_ALLOWED_HOSTS", "photos.example, cdn.example")
	t.Setenv("PHOTO_ALLOW_PRIVATE_NETWORKS", "")
	t.Setenv("TRUST_PROXY_HEADERS", "")

	cfg := FromEnv()
	assert.Equal(t, []string{"photos.example", "cdn.example"}, cfg.Photo.AllowedHosts)
	assert.False(t, cfg.Photo.AllowPrivateNetworks)
	assert.False(t, cfg.Server.TrustProxyHeaders)
}

func TestValidate(t *testing.T) {
	t.Setenv("LICENSE_JURISDICTION", "")
	t.Setenv("LICENSE_VALIDITY_YEARS", "")
	t.Setenv("LICENSE_NUMBER_ATTEMPTS", "")
	require.NoError(t, FromEnv().Validate())

	tests := map[string]struct {
		env  map[string]string
		want string
	}{
		"jurisdiction with separator": {map[string]string{"LICENSE_JURISDICTION": "DKI-JKT"}, "LICENSE_JURISDICTION"},
		"jurisdiction too long":       {map[string]string{"LICENSE_JURISDICTION": "JAKARTA"}, "LICENSE_JURISDICTION"},
		"zero validity":               {map[string]string{"LICENSE_VALIDITY_YEARS": "0"}, "LICENSE_VALIDITY_YEARS"},
		"negative validity":           {map[string]string{"LICENSE_VALIDITY_YEARS": "-5"}, "LICENSE_VALIDITY_YEARS"},
		"no number attempts":          {map[string]string{"LICENSE_NUMBER_ATTEMPTS": "0"}, "LICENSE_NUMBER_ATTEMPTS"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			err := FromEnv().Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
