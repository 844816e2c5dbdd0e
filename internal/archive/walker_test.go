package archive_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"war-api-analyzer/internal/archive"
	"war-api-analyzer/internal/classfile/classfiletest"
	"war-api-analyzer/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func collectEntries(t *testing.T, warPath string) []*domain.ClassEntry {
	t.Helper()

	var entries []*domain.ClassEntry
	walker := archive.NewWalker(zap.NewNop())
	err := walker.Walk(context.Background(), warPath, func(entry *domain.ClassEntry) error {
		entries = append(entries, entry)
		return nil
	})
	require.NoError(t, err)
	return entries
}

func TestWalk_ClassesAndNestedLibraries(t *testing.T) {
	t.Parallel()

	warPath := filepath.Join(t.TempDir(), "app.war")
	require.NoError(t, classfiletest.WriteWAR(warPath,
		map[string][]byte{
			"com/ex/UserController.class": []byte("outer-a"),
			"com/ex/sub/Helper.class":     []byte("outer-b"),
		},
		map[string]map[string][]byte{
			"common-lib.jar": {
				"com/lib/Shared.class": []byte("inner-a"),
				"META-INF/MANIFEST.MF": []byte("Manifest-Version: 1.0"),
			},
		},
	))

	entries := collectEntries(t, warPath)
	require.Len(t, entries, 3)

	byPath := map[string]*domain.ClassEntry{}
	for _, entry := range entries {
		byPath[entry.Path] = entry
	}

	outer := byPath["WEB-INF/classes/com/ex/UserController.class"]
	require.NotNil(t, outer)
	assert.Equal(t, warPath, outer.Origin.War)
	assert.False(t, outer.Origin.Nested())
	assert.Equal(t, []byte("outer-a"), outer.Data)

	inner := byPath["com/lib/Shared.class"]
	require.NotNil(t, inner)
	assert.Equal(t, "common-lib.jar", inner.Origin.Jar)
	assert.True(t, inner.Origin.Nested())
	assert.Equal(t, []byte("inner-a"), inner.Data)
}

func TestWalk_IgnoresOtherLayouts(t *testing.T) {
	t.Parallel()

	// A zip with no WEB-INF/classes class and no direct WEB-INF/lib jar
	// yields no entries and no error
	warPath := filepath.Join(t.TempDir(), "plain.war")

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, name := range []string{"index.html", "classes/Not.class", "WEB-INF/web.xml", "WEB-INF/lib/sub/deep.jar"} {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte("x"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, os.WriteFile(warPath, buf.Bytes(), 0o644))

	entries := collectEntries(t, warPath)
	assert.Empty(t, entries)
}

func TestWalk_EmissionOrderFollowsArchiveOrder(t *testing.T) {
	t.Parallel()

	warPath := filepath.Join(t.TempDir(), "ordered.war")
	require.NoError(t, classfiletest.WriteWAR(warPath,
		map[string][]byte{
			"a/A.class": []byte("a"),
			"b/B.class": []byte("b"),
			"c/C.class": []byte("c"),
		},
		nil,
	))

	entries := collectEntries(t, warPath)
	require.Len(t, entries, 3)
	assert.Equal(t, "WEB-INF/classes/a/A.class", entries[0].Path)
	assert.Equal(t, "WEB-INF/classes/b/B.class", entries[1].Path)
	assert.Equal(t, "WEB-INF/classes/c/C.class", entries[2].Path)
}

func TestWalk_MalformedNestedArchiveIsSkipped(t *testing.T) {
	t.Parallel()

	warPath := filepath.Join(t.TempDir(), "broken-lib.war")

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	f, err := w.Create("WEB-INF/lib/broken.jar")
	require.NoError(t, err)
	_, err = f.Write([]byte("this is not a zip"))
	require.NoError(t, err)

	f, err = w.Create("WEB-INF/classes/com/ex/Ok.class")
	require.NoError(t, err)
	_, err = f.Write([]byte("ok"))
	require.NoError(t, err)

	require.NoError(t, w.Close())
	require.NoError(t, os.WriteFile(warPath, buf.Bytes(), 0o644))

	entries := collectEntries(t, warPath)
	require.Len(t, entries, 1)
	assert.Equal(t, "WEB-INF/classes/com/ex/Ok.class", entries[0].Path)
}

func TestWalk_ArchiveNotFound(t *testing.T) {
	t.Parallel()

	walker := archive.NewWalker(zap.NewNop())
	err := walker.Walk(context.Background(), filepath.Join(t.TempDir(), "missing.war"), func(*domain.ClassEntry) error {
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrArchiveNotFound)
}

func TestWalk_UnreadableOuterArchive(t *testing.T) {
	t.Parallel()

	warPath := filepath.Join(t.TempDir(), "garbage.war")
	require.NoError(t, os.WriteFile(warPath, []byte("not a zip at all"), 0o644))

	walker := archive.NewWalker(zap.NewNop())
	err := walker.Walk(context.Background(), warPath, func(*domain.ClassEntry) error {
		return nil
	})

	var openErr *domain.ArchiveOpenError
	require.ErrorAs(t, err, &openErr)
	assert.Equal(t, warPath, openErr.Path)
}

func TestWalk_CallbackErrorAbortsWalk(t *testing.T) {
	t.Parallel()

	warPath := filepath.Join(t.TempDir(), "abort.war")
	require.NoError(t, classfiletest.WriteWAR(warPath,
		map[string][]byte{
			"a/A.class": []byte("a"),
			"b/B.class": []byte("b"),
		},
		nil,
	))

	sentinel := errors.New("stop here")
	seen := 0
	walker := archive.NewWalker(zap.NewNop())
	err := walker.Walk(context.Background(), warPath, func(*domain.ClassEntry) error {
		seen++
		return sentinel
	})

	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, seen)
}

func TestWalk_Cancellation(t *testing.T) {
	t.Parallel()

	warPath := filepath.Join(t.TempDir(), "cancel.war")
	require.NoError(t, classfiletest.WriteWAR(warPath,
		map[string][]byte{"a/A.class": []byte("a")},
		nil,
	))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	walker := archive.NewWalker(zap.NewNop())
	err := walker.Walk(ctx, warPath, func(*domain.ClassEntry) error {
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
