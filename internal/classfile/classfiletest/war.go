package classfiletest

import (
	"archive/zip"
	"bytes"
	"os"
	"sort"
)

// WriteWAR writes a WAR archive to path. classes maps class entry paths
// (relative to WEB-INF/classes/) to class-file bytes; libs maps nested
// JAR names (relative to WEB-INF/lib/) to their own class entry maps.
// Entries are written in sorted order so fixtures are deterministic.
func WriteWAR(path string, classes map[string][]byte, libs map[string]map[string][]byte) error {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	for _, name := range sortedKeys(classes) {
		f, err := w.Create("WEB-INF/classes/" + name)
		if err != nil {
			return err
		}
		if _, err := f.Write(classes[name]); err != nil {
			return err
		}
	}

	for _, jarName := range sortedKeysNested(libs) {
		jarBytes, err := writeJAR(libs[jarName])
		if err != nil {
			return err
		}
		f, err := w.Create("WEB-INF/lib/" + jarName)
		if err != nil {
			return err
		}
		if _, err := f.Write(jarBytes); err != nil {
			return err
		}
	}

	if err := w.Close(); err != nil {
		return err
	}

	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func writeJAR(classes map[string][]byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	for _, name := range sortedKeys(classes) {
		f, err := w.Create(name)
		if err != nil {
			return nil, err
		}
		if _, err := f.Write(classes[name]); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysNested(m map[string]map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
