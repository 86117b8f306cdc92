package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvPrefersLoadedMap(t *testing.T) {
	t.Setenv("MAKKARA_TEST_KEY", "from-os")
	Env = map[string]string{"MAKKARA_TEST_KEY": "from-file"}
	defer func() { Env = nil }()

	assert.Equal(t, "from-file", GetEnv("MAKKARA_TEST_KEY", "def"))
	delete(Env, "MAKKARA_TEST_KEY")
	assert.Equal(t, "from-os", GetEnv("MAKKARA_TEST_KEY", "def"))
	assert.Equal(t, "def", GetEnv("MAKKARA_MISSING_KEY", "def"))
}

func TestGetEnvIntAndDuration(t *testing.T) {
	Env = map[string]string{
		"LIMIT":     "7",
		"BAD_LIMIT": "seven",
		"TTL":       "90s",
		"BAD_TTL":   "soon",
	}
	defer func() { Env = nil }()

	assert.Equal(t, 7, GetEnvInt("LIMIT", 1))
	assert.Equal(t, 1, GetEnvInt("BAD_LIMIT", 1))
	assert.Equal(t, 3, GetEnvInt("UNSET_LIMIT", 3))
	assert.Equal(t, 90*time.Second, GetEnvDuration("TTL", time.Minute))
	assert.Equal(t, time.Minute, GetEnvDuration("BAD_TTL", time.Minute))
}
