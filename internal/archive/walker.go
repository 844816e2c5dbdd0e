package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"war-api-analyzer/internal/domain"

	"go.uber.org/zap"
)

const (
	classSuffix   = ".class"
	jarSuffix     = ".jar"
	classesPrefix = "WEB-INF/classes/"
	libPrefix     = "WEB-INF/lib/"
)

// Walker enumerates class files in a WAR archive, recursing into the
// libraries packaged under WEB-INF/lib.
type Walker struct {
	logger *zap.Logger
}

// NewWalker creates a new archive walker
func NewWalker(logger *zap.Logger) *Walker {
	return &Walker{logger: logger}
}

// Walk opens the archive at archivePath and calls fn once per class file,
// in archive entry order. Malformed nested archives are skipped with a
// diagnostic; an unreadable outer archive fails the whole walk.
func (w *Walker) Walk(ctx context.Context, archivePath string, fn func(entry *domain.ClassEntry) error) error {
	if _, err := os.Stat(archivePath); os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", domain.ErrArchiveNotFound, archivePath)
	}

	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return &domain.ArchiveOpenError{Path: archivePath, Err: err}
	}
	defer reader.Close()

	w.logger.Debug("Opened archive",
		zap.String("path", archivePath),
		zap.Int("entries", len(reader.File)))

	for _, file := range reader.File {
		if err := ctx.Err(); err != nil {
			return err
		}

		name := file.Name
		switch {
		case isClassEntry(name):
			data, err := readZipEntry(file)
			if err != nil {
				w.logger.Warn("Skipping unreadable class entry",
					zap.String("entry", name),
					zap.Error(err))
				continue
			}

			entry := &domain.ClassEntry{
				Origin: domain.Origin{War: archivePath},
				Path:   name,
				Data:   data,
			}
			if err := fn(entry); err != nil {
				return err
			}

		case isLibraryEntry(name):
			if err := w.walkNested(ctx, archivePath, file, fn); err != nil {
				return err
			}
		}
	}

	return nil
}

// walkNested opens a WEB-INF/lib archive in memory and yields its class
// entries. A malformed nested archive is skipped, not fatal.
func (w *Walker) walkNested(ctx context.Context, archivePath string, file *zip.File, fn func(entry *domain.ClassEntry) error) error {
	data, err := readZipEntry(file)
	if err != nil {
		w.logger.Warn("Skipping unreadable nested archive",
			zap.String("entry", file.Name),
			zap.Error(err))
		return nil
	}

	nested, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		w.logger.Warn("Skipping malformed nested archive",
			zap.String("entry", file.Name),
			zap.Error(err))
		return nil
	}

	jarName := path.Base(file.Name)

	for _, inner := range nested.File {
		if err := ctx.Err(); err != nil {
			return err
		}

		if !strings.HasSuffix(inner.Name, classSuffix) || strings.HasSuffix(inner.Name, "/") {
			continue
		}

		innerData, err := readZipEntry(inner)
		if err != nil {
			w.logger.Warn("Skipping unreadable class entry in nested archive",
				zap.String("archive", jarName),
				zap.String("entry", inner.Name),
				zap.Error(err))
			continue
		}

		entry := &domain.ClassEntry{
			Origin: domain.Origin{War: archivePath, Jar: jarName},
			Path:   inner.Name,
			Data:   innerData,
		}
		if err := fn(entry); err != nil {
			return err
		}
	}

	return nil
}

// isClassEntry matches WEB-INF/classes/**/*.class
func isClassEntry(name string) bool {
	return strings.HasPrefix(name, classesPrefix) && strings.HasSuffix(name, classSuffix)
}

// isLibraryEntry matches WEB-INF/lib/*.jar (direct children only)
func isLibraryEntry(name string) bool {
	if !strings.HasPrefix(name, libPrefix) || !strings.HasSuffix(name, jarSuffix) {
		return false
	}
	rest := strings.TrimPrefix(name, libPrefix)
	return !strings.Contains(rest, "/")
}

func readZipEntry(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}
