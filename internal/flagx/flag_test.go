package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "separate value",
			args:    []string{"-c", "conf.json", "-a", ":8080"},
			allowed: []string{"-c", "-config"},
			want:    []string{"-c", "conf.json"},
		},
		{
			name:    "equals form",
			args:    []string{"-config=alt.json", "-a", ":8080"},
			allowed: []string{"-c", "-config"},
			want:    []string{"-config=alt.json"},
		},
		{
			name:    "unknown flags dropped",
			args:    []string{"-x", "1", "--y=2", "positional"},
			allowed: []string{"-c"},
			want:    []string{},
		},
		{
			name:    "trailing flag without value",
			args:    []string{"-d"},
			allowed: []string{"-d"},
			want:    []string{"-d"},
		},
		{
			name:    "next flag is not consumed as value",
			args:    []string{"-d", "-s", "secret"},
			allowed: []string{"-d"},
			want:    []string{"-d"},
		},
		{
			name:    "several allowed flags keep order",
			args:    []string{"-s", "k", "-x", "-a", ":1", "-w", "30"},
			allowed: []string{"-a", "-s", "-w"},
			want:    []string{"-s", "k", "-a", ":1", "-w", "30"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func TestConfigFilePath(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Run("short flag", func(t *testing.T) {
		os.Args = []string{"bin", "-a", ":1", "-c", "short.json"}
		assert.Equal(t, "short.json", ConfigFilePath())
	})

	t.Run("long flag with equals", func(t *testing.T) {
		os.Args = []string{"bin", "-config=long.json"}
		assert.Equal(t, "long.json", ConfigFilePath())
	})

	t.Run("env fallback", func(t *testing.T) {
		os.Args = []string{"bin"}
		t.Setenv(ConfigEnvVar, "env.json")
		assert.Equal(t, "env.json", ConfigFilePath())
	})

	t.Run("flag wins over env", func(t *testing.T) {
		os.Args = []string{"bin", "-c", "flag.json"}
		t.Setenv(ConfigEnvVar, "env.json")
		assert.Equal(t, "flag.json", ConfigFilePath())
	})

	t.Run("nothing", func(t *testing.T) {
		os.Args = []string{"bin"}
		t.Setenv(ConfigEnvVar, "")
		assert.Equal(t, "", ConfigFilePath())
	})
}
