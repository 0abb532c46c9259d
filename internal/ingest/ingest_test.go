package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/finextract/constants"
	"github.com/joseph-ayodele/finextract/internal/common"
	"github.com/joseph-ayodele/finextract/internal/repository"
)

func newDocs(t *testing.T) repository.DocumentRepository {
	t.Helper()
	ctx := context.Background()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := repository.Open(ctx, repository.Config{DSN: "file:" + name + "?mode=memory&cache=shared"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))
	return repository.NewDocumentRepository(db, nil)
}

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

type submissions struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (s *submissions) submit(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, id)
	return nil
}

func (s *submissions) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

func TestIngestPathCreatesAndDedups(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	docs := newDocs(t)
	subs := &submissions{}
	ing := NewFSIngestor(docs, subs.submit, nil)

	first := write(t, dir, "march.PDF", "%PDF statement")
	res, err := ing.IngestPath(ctx, first)
	require.NoError(t, err)
	assert.False(t, res.Deduplicated)
	assert.True(t, res.Queued)
	assert.Equal(t, constants.MediaTypePDF, res.MediaType)
	assert.Len(t, res.HashHex, 64)
	assert.EqualValues(t, len("%PDF statement"), res.SizeBytes)

	doc, err := docs.GetByID(ctx, res.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "march.PDF", doc.Name)
	assert.Equal(t, constants.PDF, doc.Format)
	assert.Equal(t, constants.DocumentPending, doc.Status)

	// Same bytes under another name.
	copyPath := write(t, dir, "copy.pdf", "%PDF statement")
	dup, err := ing.IngestPath(ctx, copyPath)
	require.NoError(t, err)
	assert.True(t, dup.Deduplicated)
	assert.False(t, dup.Queued)
	assert.Equal(t, res.DocumentID, dup.DocumentID)
	assert.Equal(t, 1, subs.count())
}

func TestIngestPathRequeuesAfterSubmitFailure(t *testing.T) {
	ctx := context.Background()
	docs := newDocs(t)
	subs := &submissions{}
	fail := true
	submit := func(ctx context.Context, id uuid.UUID) error {
		if fail {
			return errors.New("queue full")
		}
		return subs.submit(ctx, id)
	}
	ing := NewFSIngestor(docs, submit, nil)
	p := write(t, t.TempDir(), "april.pdf", "%PDF april")

	res, err := ing.IngestPath(ctx, p)
	require.Error(t, err)
	doc, err := docs.GetByID(ctx, res.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, constants.DocumentError, doc.Status)
	require.NotNil(t, doc.ErrorMessage)
	assert.Contains(t, *doc.ErrorMessage, "queue full")

	fail = false
	again, err := ing.IngestPath(ctx, p)
	require.NoError(t, err)
	assert.True(t, again.Deduplicated)
	assert.True(t, again.Queued)
	assert.Equal(t, res.DocumentID, again.DocumentID)
	assert.Equal(t, []uuid.UUID{res.DocumentID}, subs.ids)

	doc, err = docs.GetByID(ctx, res.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, constants.DocumentPending, doc.Status)
	assert.Nil(t, doc.ErrorMessage)
}

func TestIngestPathRejectsUnsupported(t *testing.T) {
	ing := NewFSIngestor(newDocs(t), nil, nil)
	p := write(t, t.TempDir(), "notes.txt", "hello")
	_, err := ing.IngestPath(context.Background(), p)
	assert.Equal(t, common.CodeUnsupportedFormat, common.CodeOf(err))
}

func TestIngestPathMissingFile(t *testing.T) {
	ing := NewFSIngestor(newDocs(t), nil, nil)
	_, err := ing.IngestPath(context.Background(), filepath.Join(t.TempDir(), "gone.png"))
	assert.Equal(t, common.CodeNotFound, common.CodeOf(err))
}

func TestIngestDirectory(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "a.pdf", "one")
	write(t, dir, "nested/b.jpg", "two")
	write(t, dir, "nested/c.jpeg", "two") // duplicate content
	write(t, dir, "readme.md", "skip")
	write(t, dir, ".hidden/d.png", "hidden")
	write(t, dir, ".e.png", "hidden file")

	ing := NewFSIngestor(newDocs(t), nil, nil)
	results, stats, err := ing.IngestDirectory(context.Background(), dir, true)
	require.NoError(t, err)

	assert.EqualValues(t, 3, stats.Matched)
	assert.EqualValues(t, 3, stats.Succeeded)
	assert.EqualValues(t, 1, stats.Deduplicated)
	assert.EqualValues(t, 0, stats.Failed)
	assert.Len(t, results, 3)
	for _, r := range results {
		assert.NotContains(t, r.SourcePath, ".hidden")
	}

	_, stats, err = ing.IngestDirectory(context.Background(), dir, false)
	require.NoError(t, err)
	assert.EqualValues(t, 5, stats.Matched)
}

func TestIngestDirectoryRequiresRoot(t *testing.T) {
	ing := NewFSIngestor(newDocs(t), nil, nil)
	_, _, err := ing.IngestDirectory(context.Background(), "  ", true)
	assert.Equal(t, common.CodeInvalidInput, common.CodeOf(err))
}

func TestStartWatcherEmitsNewFiles(t *testing.T) {
	dir := t.TempDir()
	existing := write(t, dir, "old.pdf", "old")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{dir}, InitialScan: true, Debounce: 20 * time.Millisecond})
	require.NoError(t, err)

	select {
	case p := <-events:
		assert.Equal(t, existing, p)
	case <-time.After(2 * time.Second):
		t.Fatal("initial scan did not emit existing file")
	}

	fresh := write(t, dir, "new.png", "new")
	write(t, dir, "ignored.txt", "x")
	select {
	case p := <-events:
		assert.Equal(t, fresh, p)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not emit created file")
	}

	cancel()
	require.Eventually(t, func() bool {
		_, ok := <-events
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStartWatcherNeedsRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{})
	assert.Error(t, err)
}
