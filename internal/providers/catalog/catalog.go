package catalog

import (
	"archive/tar"
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"github.com/gabriel-vasile/mimetype"
	"github.com/goccy/go-yaml"
	"github.com/klauspost/compress/gzip"

	"github.com/GriffinCanCode/codefixlab/internal/sandbox"
)

var (
	ErrNotFound    = errors.New("catalog entry not found")
	ErrUnknownKind = errors.New("unknown catalog kind")
)

// overlayPattern selects catalog files inside an overlay directory
const overlayPattern = "**/*.{yaml,yml}"

//go:embed catalog.yaml
var builtinCatalog []byte

// Catalog holds the static learning material. It is read-only once loaded.
type Catalog struct {
	errors       []CommonError
	projects     []Project
	miniProjects []MiniProject
	code         *codeRenderer
}

// Builtin returns the catalog shipped with the binary
func Builtin() *Catalog {
	c, err := Parse(builtinCatalog)
	if err != nil {
		panic(err)
	}
	return c
}

// Parse decodes a YAML catalog
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	c := &Catalog{code: newCodeRenderer()}
	if err := c.merge(doc); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadOverlay merges every YAML file under dir into c. Entries with an id
// already present replace the existing entry.
func (c *Catalog) LoadOverlay(dir string) error {
	var (
		mu    sync.Mutex
		files []string
	)
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return nil
		}
		ok, err := doublestar.Match(overlayPattern, filepath.ToSlash(rel))
		if err != nil || !ok {
			return nil
		}
		mu.Lock()
		files = append(files, p)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk catalog overlay: %w", err)
	}

	// fastwalk visits in no particular order
	sort.Strings(files)
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		var doc document
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if err := c.merge(doc); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

func (c *Catalog) merge(doc document) error {
	for _, e := range doc.Errors {
		if e.ID == "" {
			return errors.New("error entry without id")
		}
		c.errors = upsert(c.errors, e, func(x CommonError) string { return x.ID })
	}
	for _, p := range doc.Projects {
		if p.ID == "" {
			return errors.New("project without id")
		}
		c.projects = upsert(c.projects, p, func(x Project) string { return x.ID })
	}
	for _, m := range doc.MiniProjects {
		if m.ID == "" {
			return errors.New("mini project without id")
		}
		c.miniProjects = upsert(c.miniProjects, m, func(x MiniProject) string { return x.ID })
	}
	return nil
}

func upsert[T any](list []T, item T, id func(T) string) []T {
	for i := range list {
		if id(list[i]) == id(item) {
			list[i] = item
			return list
		}
	}
	return append(list, item)
}

func find[T any](list []T, want string, id func(T) string) (T, error) {
	for _, item := range list {
		if id(item) == want {
			return item, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%w: %s", ErrNotFound, want)
}

// Errors returns the common error entries in display order
func (c *Catalog) Errors() []CommonError {
	return append([]CommonError{}, c.errors...)
}

// Error returns one common error entry
func (c *Catalog) Error(id string) (CommonError, error) {
	return find(c.errors, id, func(x CommonError) string { return x.ID })
}

// Projects returns the source code templates
func (c *Catalog) Projects() []Project {
	return append([]Project{}, c.projects...)
}

// Project returns one source code template
func (c *Catalog) Project(id string) (Project, error) {
	return find(c.projects, id, func(x Project) string { return x.ID })
}

// MiniProjects returns the practice projects
func (c *Catalog) MiniProjects() []MiniProject {
	return append([]MiniProject{}, c.miniProjects...)
}

// MiniProject returns one practice project
func (c *Catalog) MiniProject(id string) (MiniProject, error) {
	return find(c.miniProjects, id, func(x MiniProject) string { return x.ID })
}

// PreviewBundle returns the sandbox input that previews an entry. Projects
// are complete documents and are rendered as markup.
func (c *Catalog) PreviewBundle(kind Kind, id string) (sandbox.SourceBundle, error) {
	switch kind {
	case KindErrors:
		e, err := c.Error(id)
		if err != nil {
			return sandbox.SourceBundle{}, err
		}
		return e.Preview.Bundle(), nil
	case KindProjects:
		p, err := c.Project(id)
		if err != nil {
			return sandbox.SourceBundle{}, err
		}
		return sandbox.SourceBundle{Markup: p.Code}, nil
	case KindMiniProjects:
		m, err := c.MiniProject(id)
		if err != nil {
			return sandbox.SourceBundle{}, err
		}
		return m.Preview.Bundle(), nil
	}
	return sandbox.SourceBundle{}, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
}

// RenderCode returns the highlighted HTML for an entry's code sample
func (c *Catalog) RenderCode(kind Kind, id string) (string, error) {
	switch kind {
	case KindErrors:
		e, err := c.Error(id)
		if err != nil {
			return "", err
		}
		return c.code.Render(e.Language, e.Code)
	case KindProjects:
		p, err := c.Project(id)
		if err != nil {
			return "", err
		}
		return c.code.Render(p.Language, p.Code)
	case KindMiniProjects:
		m, err := c.MiniProject(id)
		if err != nil {
			return "", err
		}
		return c.code.Render("javascript", m.Preview.Script)
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownKind, kind)
}

// DownloadName is the file name offered for a project download
func DownloadName(id string) string {
	return "codefixlab-" + id + ".html"
}

// Download returns a project's source as a file
func (c *Catalog) Download(id string) (*File, error) {
	p, err := c.Project(id)
	if err != nil {
		return nil, err
	}
	data := []byte(p.Code)
	return &File{
		Name:        DownloadName(p.ID),
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
	}, nil
}

// Archive bundles every project into one gzip-compressed tarball
func (c *Catalog) Archive() (*File, error) {
	var buf bytes.Buffer
	gz, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	tw := tar.NewWriter(gz)

	// Fixed timestamps keep archives byte-identical across requests
	modTime := time.Unix(0, 0).UTC()
	for _, p := range c.projects {
		hdr := &tar.Header{
			Name:    DownloadName(p.ID),
			Mode:    0o644,
			Size:    int64(len(p.Code)),
			ModTime: modTime,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, fmt.Errorf("failed to write archive header: %w", err)
		}
		if _, err := tw.Write([]byte(p.Code)); err != nil {
			return nil, fmt.Errorf("failed to write archive entry: %w", err)
		}
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}

	data := buf.Bytes()
	return &File{
		Name:        "codefixlab-projects.tar.gz",
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
	}, nil
}

// ParseKind validates a kind taken from a URL
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(s)); k {
	case KindErrors, KindProjects, KindMiniProjects:
		return k, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownKind, s)
}
