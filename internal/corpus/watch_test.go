package corpus_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/readup/internal/corpus"
	"github.com/listenupapp/readup/internal/corpus/corpustest"
	"github.com/listenupapp/readup/internal/logger"
)

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.yaml")
	require.NoError(t, os.WriteFile(path, []byte(corpustest.SampleYAML), 0o600))

	c, err := corpus.Load(path)
	require.NoError(t, err)
	h := corpus.NewHolder(c)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	reloaded := make(chan struct{}, 4)
	go func() {
		done <- corpus.Watch(ctx, path, h, logger.Discard(), func(*corpus.Corpus) { reloaded <- struct{}{} })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)

	// A broken file is ignored.
	require.NoError(t, os.WriteFile(path, []byte("books: ["), 0o600))
	time.Sleep(500 * time.Millisecond)
	assert.Same(t, c, h.Current())

	updated := strings.Replace(corpustest.SampleYAML, "segments: [S009, S010, S011]", "segments: [S010]", 1)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("corpus was not reloaded")
	}

	segs, ok := h.ChallengeSegments("AdventJourney")
	require.True(t, ok)
	assert.Equal(t, []string{"S010"}, segs)

	cancel()
	require.NoError(t, <-done)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := corpus.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
