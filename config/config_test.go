package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults apply without a config file", func(t *testing.T) {
		wd, err := os.Getwd()
		require.NoError(t, err)
		require.NoError(t, os.Chdir(t.TempDir()))
		t.Cleanup(func() { _ = os.Chdir(wd) })

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.MaxPassageNum)
		assert.Equal(t, 500, cfg.MaxPassageLen)
		assert.Equal(t, 60, cfg.MaxQuestionLen)
		assert.Equal(t, 32, cfg.BatchSize)
		assert.Equal(t, 0, cfg.PaddingID)
		assert.True(t, cfg.Shuffle)
		assert.Empty(t, cfg.TrainFiles)
	})

	t.Run("yaml file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rcdata.yaml")
		yaml := `max_passage_num: 3
max_passage_len: 120
batch_size: 8
shuffle: false
badcase_sample_log: out/badcase.log
train_files:
  - data/train.json
dev_files:
  - data/dev.json
`
		require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 3, cfg.MaxPassageNum)
		assert.Equal(t, 120, cfg.MaxPassageLen)
		assert.Equal(t, 60, cfg.MaxQuestionLen, "unset keys keep defaults")
		assert.Equal(t, 8, cfg.BatchSize)
		assert.False(t, cfg.Shuffle)
		assert.Equal(t, "out/badcase.log", cfg.BadcaseSampleLog)
		assert.Equal(t, []string{"data/train.json"}, cfg.TrainFiles)
		assert.Equal(t, []string{"data/dev.json"}, cfg.DevFiles)
	})

	t.Run("explicit missing file is an error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rcdata.yaml")
		require.NoError(t, os.WriteFile(path, []byte("batch_size: 8\n"), 0o644))
		t.Setenv("RCDATA_BATCH_SIZE", "64")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 64, cfg.BatchSize)
	})
}
