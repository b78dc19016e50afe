package configs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/titlesearch/configs"
	"github.com/Aman-CERP/titlesearch/internal/config"
)

func TestConfigTemplate_MatchesDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(configs.ConfigTemplate), 0o644))

	cfg, err := config.Load(config.LoadOptions{Dir: dir, ConfigPath: path})

	require.NoError(t, err)
	def := config.NewConfig()
	assert.Equal(t, def.Search, cfg.Search)
	assert.Equal(t, def.Embeddings, cfg.Embeddings)
	assert.Equal(t, def.Server, cfg.Server)
	assert.Equal(t, def.Index.Path, cfg.Index.Path)
}
