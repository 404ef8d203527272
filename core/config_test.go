package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("ENV", "TEST")
		t.Setenv("API_BASE_URL", "")

		conf := NewConfig()
		assert.Equal(t, "TEST", conf.Env)
		assert.True(t, conf.TestMode)
		assert.Equal(t, ":8000", conf.Server.Address)
		assert.Equal(t, 2*time.Second, conf.Auth.GuardWait)
		assert.Equal(t, SessionBackendMemory, conf.Session.Backend)
		assert.Equal(t, "cace_session", conf.Session.CookieName)
	})

	t.Run("prefixed environment", func(t *testing.T) {
		t.Setenv("ENV", "test")
		t.Setenv("TEST_SERVER_ADDRESS", ":9999")
		t.Setenv("TEST_AUTH_GUARDWAIT", "750ms")
		t.Setenv("TEST_SESSION_BACKEND", "Redis")
		t.Setenv("TEST_APIBASEURL", "https://cace.example.edu/api/")

		conf := NewConfig()
		assert.Equal(t, ":9999", conf.Server.Address)
		assert.Equal(t, 750*time.Millisecond, conf.Auth.GuardWait)
		assert.Equal(t, SessionBackendRedis, conf.Session.Backend)
		assert.Equal(t, "https://cace.example.edu/api", conf.Backend.BaseURL)
	})

	t.Run("un-prefixed api base url", func(t *testing.T) {
		t.Setenv("ENV", "TEST")
		t.Setenv("API_BASE_URL", "http://10.0.0.5:3000/api")

		conf := NewConfig()
		assert.Equal(t, "http://10.0.0.5:3000/api", conf.Backend.BaseURL)
	})
}
