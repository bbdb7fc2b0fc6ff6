package testutil

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// BuildZip returns a zip archive holding files, keyed by entry name.
// Entries are written in name order.
func BuildZip(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("creating zip entry %s: %v", name, err)
		}
		if _, err := w.Write(files[name]); err != nil {
			t.Fatalf("writing zip entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	return buf.Bytes()
}

// WriteFiles writes files below root, creating directories as needed.
func WriteFiles(t *testing.T, root string, files map[string][]byte) {
	t.Helper()
	for name, data := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatalf("creating directory for %s: %v", name, err)
		}
		if err := os.WriteFile(p, data, 0644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
}

// LicensedArchive describes a jar or esa bundling license files.
type LicensedArchive struct {
	// ManifestPath is META-INF/MANIFEST.MF or OSGI-INF/SUBSYSTEM.MF.
	ManifestPath string
	// Headers maps manifest header names to entry-name prefixes.
	Headers map[string]string
	// Licenses maps entry names to their content.
	Licenses map[string]string
}

// Build returns the archive bytes.
func (a LicensedArchive) Build(t *testing.T) []byte {
	t.Helper()
	var mf strings.Builder
	mf.WriteString("Manifest-Version: 1.0\r\n")
	keys := make([]string, 0, len(a.Headers))
	for k := range a.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		mf.WriteString(k + ": " + a.Headers[k] + "\r\n")
	}

	files := map[string][]byte{a.ManifestPath: []byte(mf.String())}
	for name, content := range a.Licenses {
		files[name] = []byte(content)
	}
	return BuildZip(t, files)
}
