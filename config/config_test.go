package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// useDotEnv points Load at a temporary .env file, or at a missing one when content is empty.
func useDotEnv(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if content != "" {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	previous := dotEnvFile
	dotEnvFile = path
	t.Cleanup(func() { dotEnvFile = previous })
}

func TestLoadPrecedence(t *testing.T) {
	useDotEnv(t, "PGDATABASE=from_dotenv\nPGUSER=dotenv_user\n")
	t.Setenv("PGDATABASE", "")
	require.NoError(t, os.Unsetenv("PGDATABASE"))
	for _, name := range []string{"AWS_REGION", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "S3_ENDPOINT", "S3_PATH_STYLE"} {
		t.Setenv(name, "")
	}
	t.Setenv("PGUSER", "env_user")
	t.Setenv("S3_TIMEOUT", "5s")
	t.Setenv("LANDING_ALLOW_LIST", "/demovol, /tenant1")

	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("s3_endpoint: https://file:9000\ns3_path_style: true\ndb_port: 6543\n"), 0o600))

	args := &Config{S3Endpoint: "https://args:9000"}
	c, err := Load(args, file)
	require.NoError(t, err)

	assert.Equal(t, "from_dotenv", c.DBName, ".env fills unset variables")
	assert.Equal(t, "env_user", c.DBUser, "the environment wins over .env")
	assert.Equal(t, 5*time.Second, c.S3Timeout)
	assert.Equal(t, []string{"/demovol", "/tenant1"}, c.AllowList)
	assert.Equal(t, 6543, c.DBPort, "the file wins over defaults")
	assert.True(t, c.S3PathStyle)
	assert.Equal(t, "https://args:9000", c.S3Endpoint, "arguments win over the file")
	assert.Equal(t, "us-east-1", c.S3Region)

	opts := c.StoreOptions()
	assert.Equal(t, "https://args:9000", opts.Endpoint)
	assert.True(t, opts.UsePathStyle)
}

func TestLoadErrors(t *testing.T) {
	useDotEnv(t, "")

	_, err := Load(nil, "missing.yaml")
	assert.Error(t, err)

	t.Setenv("PGPORT", "not-a-port")
	_, err = Load(nil, "")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		valid  bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"port out of range", func(c *Config) { c.DBPort = 70000 }, false},
		{"negative timeout", func(c *Config) { c.S3Timeout = -time.Second }, false},
		{"access key without secret", func(c *Config) { c.S3AccessKey = "key" }, false},
		{"both keys", func(c *Config) { c.S3AccessKey, c.S3SecretKey = "key", "secret" }, true},
		{"relative allow-list entry", func(c *Config) { c.AllowList = []string{"demovol"} }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.modify(c)
			if err := c.Validate(); (err == nil) != tt.valid {
				t.Errorf("Validate() = %v; want valid=%v", err, tt.valid)
			}
		})
	}
}

func TestOverride(t *testing.T) {
	c := &Config{DBHost: "db", DBPort: 5432, S3PathStyle: true}
	c.override(&Config{DBPort: 6000, AllowList: []string{"/x"}})

	assert.Equal(t, "db", c.DBHost, "empty strings do not override")
	assert.Equal(t, 6000, c.DBPort)
	assert.True(t, c.S3PathStyle, "false does not override")
	assert.Equal(t, []string{"/x"}, c.AllowList)
}
