package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	o := Load(New(), "exp.yaml")
	assert.Equal(t, &Options{
		Experiments: "exp.yaml",
		Output:      "shadow.h5",
		Compression: "gzip",
		Dataset:     "shadow/dynamic_mask",
		LogLevel:    "info",
	}, o)
}

func TestApplyAssignments(t *testing.T) {
	v := New()
	rest, err := ApplyAssignments(v, []string{"output=x.h5", "exp.yaml", "compression=lz4", "log-level=debug"})
	require.NoError(t, err)
	assert.Equal(t, []string{"exp.yaml"}, rest)
	o := Load(v, rest[0])
	assert.Equal(t, "x.h5", o.Output)
	assert.Equal(t, "lz4", o.Compression)
	assert.Equal(t, "debug", o.LogLevel)

	_, err = ApplyAssignments(v, []string{"colour=blue"})
	assert.Error(t, err)
}

func TestEnvironment(t *testing.T) {
	t.Setenv("SHADOWMASK_COMPRESSION", "lzf")
	assert.Equal(t, "lzf", Load(New(), "").Compression)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shadowmask.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output: out.h5\nquiet: true\n"), 0o644))
	v := New()
	require.NoError(t, ReadFile(v, path))
	o := Load(v, "")
	assert.Equal(t, "out.h5", o.Output)
	assert.True(t, o.Quiet)
	assert.Equal(t, "gzip", o.Compression)

	assert.Error(t, ReadFile(New(), filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestNamedLogger(t *testing.T) {
	l := NamedLogger("generate")
	var buf bytes.Buffer
	l.SetOutput(&buf)
	l.Info("hello")
	assert.Contains(t, buf.String(), "[generate] hello")

	require.NoError(t, ConfigureLogger(l, "warn", false))
	assert.Equal(t, logrus.WarnLevel, l.GetLevel())
	assert.Error(t, ConfigureLogger(l, "loud", false))
}
