// Package manifest reads the header sections of jar and esa manifests
// (META-INF/MANIFEST.MF, OSGI-INF/SUBSYSTEM.MF).
package manifest

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"emperror.dev/errors"
)

const (
	JarPath = "META-INF/MANIFEST.MF"
	EsaPath = "OSGI-INF/SUBSYSTEM.MF"
)

// Attributes holds the headers of one manifest section. Names match
// case-insensitively.
type Attributes map[string]string

// Get returns the value of the header name, or "" when absent.
func (a Attributes) Get(name string) string {
	return a[strings.ToLower(name)]
}

func (a Attributes) set(name, value string) {
	a[strings.ToLower(name)] = value
}

// Manifest is a parsed manifest: the main section plus any named sections.
type Manifest struct {
	Main     Attributes
	Sections map[string]Attributes
}

// Parse reads a manifest. Continuation lines (starting with one space) are
// joined onto the previous header. A blank line ends a section.
func Parse(r io.Reader) (*Manifest, error) {
	m := &Manifest{Main: Attributes{}, Sections: map[string]Attributes{}}
	current := m.Main
	inMain := true

	var name string
	var value strings.Builder
	flush := func() error {
		if name == "" {
			return nil
		}
		v := value.String()
		if !inMain && current == nil {
			if !strings.EqualFold(name, "Name") {
				return errors.Errorf("manifest section does not start with Name: found %q", name)
			}
			current = Attributes{}
			m.Sections[v] = current
		}
		current.set(name, v)
		name = ""
		value.Reset()
		return nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	line := 0
	for scanner.Scan() {
		line++
		text := string(bytes.TrimRight(scanner.Bytes(), "\r"))
		switch {
		case text == "":
			if err := flush(); err != nil {
				return nil, err
			}
			inMain = false
			current = nil
		case text[0] == ' ':
			if name == "" {
				return nil, errors.Errorf("manifest line %d: continuation without header", line)
			}
			value.WriteString(text[1:])
		default:
			if err := flush(); err != nil {
				return nil, err
			}
			i := strings.Index(text, ":")
			if i <= 0 {
				return nil, errors.Errorf("manifest line %d: missing header separator", line)
			}
			name = text[:i]
			value.WriteString(strings.TrimPrefix(text[i+1:], " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading manifest")
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return m, nil
}
