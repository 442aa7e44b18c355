// Package export writes the contents of UnityFS archives to a directory:
// textures as PNG, meshes as OBJ, text assets as files and nodes as dump
// containers. It backs the unitytools command.
//
// Failures that concern one asset are logged and the asset is skipped.
// Failures writing the output are returned.
package export

import (
	"bufio"
	"bytes"
	"cmp"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"github.com/houston-tools/unityFileTools/pkg/archive"
	"github.com/houston-tools/unityFileTools/pkg/classes"
	"github.com/houston-tools/unityFileTools/pkg/dump"
	"github.com/houston-tools/unityFileTools/pkg/serialized"
	"github.com/houston-tools/unityFileTools/pkg/texture"
)

// ManifestName is the file WriteManifest writes into the output directory.
const ManifestName = "manifest.json"

// Kind is the kind of an exported file.
type Kind string

const (
	KindTexture Kind = "texture"
	KindMesh    Kind = "mesh"
	KindText    Kind = "text"
	KindNode    Kind = "node"
)

// Entry records one exported file.
type Entry struct {
	Archive string `json:"archive"`
	Kind    Kind   `json:"kind"`
	Name    string `json:"name"`
	PathID  int64  `json:"path_id,omitempty"`
	File    string `json:"file"`
}

// Exporter writes assets below an output directory. It is safe for
// concurrent use by several archives at once.
type Exporter struct {
	outDir string
	cfg    exportConfig

	mu      sync.Mutex
	entries []Entry
	names   map[string]string // archive path to output name
	taken   map[string]struct{}
}

type exportConfig struct {
	flip     bool
	name     string
	compress bool
	logger   *slog.Logger
}

// Option configures an Exporter.
type Option func(*exportConfig)

// WithFlip flips decoded textures so that their first row is the top one.
func WithFlip(flip bool) Option {
	return func(c *exportConfig) {
		c.flip = flip
	}
}

// WithNameFilter exports only assets named name, ignoring case.
func WithNameFilter(name string) Option {
	return func(c *exportConfig) {
		c.name = name
	}
}

// WithCompression writes nodes as zstd dump containers instead of raw bytes.
func WithCompression(compress bool) Option {
	return func(c *exportConfig) {
		c.compress = compress
	}
}

// WithLogger sets the logger skipped assets are reported to.
func WithLogger(logger *slog.Logger) Option {
	return func(c *exportConfig) {
		c.logger = logger
	}
}

// New returns an Exporter writing below outDir.
func New(outDir string, opts ...Option) *Exporter {
	cfg := exportConfig{compress: true, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Exporter{
		outDir: outDir,
		cfg:    cfg,
		names:  make(map[string]string),
		taken:  make(map[string]struct{}),
	}
}

// Reserve assigns output names to archives in the order given, so that
// archives sharing a base name are told apart the same way on every run
// regardless of the order they are exported in. Archives that were not
// reserved are named when first exported.
func (e *Exporter) Reserve(paths ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range paths {
		e.archiveName(p)
	}
}

// archiveName returns the output name of the archive at src: its base name
// without extension, suffixed with a counter when an earlier archive
// already took it. The caller must hold e.mu.
func (e *Exporter) archiveName(src string) string {
	if name, ok := e.names[src]; ok {
		return name
	}
	base := filepath.Base(src)
	stem := sanitize(strings.TrimSuffix(base, filepath.Ext(base)))
	name := stem
	for i := 2; ; i++ {
		if _, used := e.taken[name]; !used {
			break
		}
		name = stem + "_" + strconv.Itoa(i)
	}
	e.taken[name] = struct{}{}
	e.names[src] = name
	return name
}

// Entries returns the files exported so far, ordered by archive and file.
func (e *Exporter) Entries() []Entry {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Entry, len(e.entries))
	copy(out, e.entries)
	sortEntries(out)
	return out
}

// WriteManifest writes Entries as JSON to ManifestName in the output
// directory.
func (e *Exporter) WriteManifest() error {
	data, err := json.MarshalIndent(e.Entries(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.MkdirAll(e.outDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(e.outDir, ManifestName)
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Textures writes every Texture2D of a as PNG.
func (e *Exporter) Textures(src string, a *archive.Archive) error {
	w := e.newArchiveWriter(src)
	for o, err := range classes.Objects(a, serialized.ClassTexture2D) {
		if err != nil {
			w.skip("read node", err)
			continue
		}
		tex, err := classes.Decode[classes.Texture2D](o)
		if err != nil {
			w.skip("decode texture", err, "path_id", o.PathID())
			continue
		}
		if !e.matches(tex.Name) {
			continue
		}

		data, err := tex.ReadData(a)
		if err != nil {
			w.skip("read texture data", err, "name", tex.Name)
			continue
		}
		img, err := data.Decode()
		if err != nil {
			w.skip("decode texture", err, "name", tex.Name, "format", tex.Format.String())
			continue
		}
		if e.cfg.flip {
			texture.FlipVertical(img)
		}

		var buf bytes.Buffer
		if err := texture.EncodePNG(&buf, img); err != nil {
			return fmt.Errorf("encode %q: %w", tex.Name, err)
		}
		if err := w.write(KindTexture, tex.Name, o, ".png", buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

// Meshes writes every Mesh of a as OBJ.
func (e *Exporter) Meshes(src string, a *archive.Archive) error {
	w := e.newArchiveWriter(src)
	for o, err := range classes.Objects(a, serialized.ClassMesh) {
		if err != nil {
			w.skip("read node", err)
			continue
		}
		mesh, err := classes.Decode[classes.Mesh](o)
		if err != nil {
			w.skip("decode mesh", err, "path_id", o.PathID())
			continue
		}
		if !e.matches(mesh.Name) {
			continue
		}

		data, err := mesh.ReadVertexData(a)
		if err != nil {
			w.skip("read vertex data", err, "name", mesh.Name)
			continue
		}
		resolved, err := data.ResolveMeshes()
		if err != nil {
			w.skip("resolve mesh", err, "name", mesh.Name)
			continue
		}

		var buf bytes.Buffer
		if err := WriteOBJ(&buf, objectName(mesh.Name, o.ClassID().String(), o.PathID()), resolved); err != nil {
			return fmt.Errorf("encode %q: %w", mesh.Name, err)
		}
		if err := w.write(KindMesh, mesh.Name, o, ".obj", buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

// Text writes the script of every TextAsset of a.
func (e *Exporter) Text(src string, a *archive.Archive) error {
	w := e.newArchiveWriter(src)
	for o, err := range classes.Objects(a, serialized.ClassTextAsset) {
		if err != nil {
			w.skip("read node", err)
			continue
		}
		text, err := classes.Decode[classes.TextAsset](o)
		if err != nil {
			w.skip("decode text asset", err, "path_id", o.PathID())
			continue
		}
		if !e.matches(text.Name) {
			continue
		}
		if err := w.write(KindText, text.Name, o, ".txt", text.Script); err != nil {
			return err
		}
	}
	return nil
}

// Dump writes the decompressed bytes of every node of a. With compression
// the nodes go into a single dump file named after the archive; without it
// each node is written as a file of its own.
func (e *Exporter) Dump(src string, a *archive.Archive) error {
	w := e.newArchiveWriter(src)
	if !e.cfg.compress {
		for node := range a.Entries() {
			if !e.matches(node.Path()) {
				continue
			}
			data, err := node.ReadRaw()
			if err != nil {
				w.skip("read node", err, "node", node.Path())
				continue
			}
			if err := w.writeFile(sanitize(node.Path()), data); err != nil {
				return err
			}
			w.e.record(Entry{Archive: src, Kind: KindNode, Name: node.Path(), File: filepath.Join(w.name, sanitize(node.Path()))})
		}
		return nil
	}

	if err := os.MkdirAll(e.outDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	file := w.name + dump.Ext
	full := filepath.Join(e.outDir, file)
	f, err := os.Create(full)
	if err != nil {
		return fmt.Errorf("create %s: %w", full, err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	dw := dump.NewWriter(bw)
	for node := range a.Entries() {
		if !e.matches(node.Path()) {
			continue
		}
		data, err := node.ReadRaw()
		if err != nil {
			w.skip("read node", err, "node", node.Path())
			continue
		}
		if err := dw.Add(node.Path(), node.Flags, data); err != nil {
			return fmt.Errorf("write %s: %w", full, err)
		}
		e.record(Entry{Archive: src, Kind: KindNode, Name: node.Path(), File: file})
	}
	if err := dw.Close(); err != nil {
		return fmt.Errorf("write %s: %w", full, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", full, err)
	}
	return f.Close()
}

func sortEntries(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int {
		return cmp.Or(strings.Compare(a.Archive, b.Archive), strings.Compare(a.File, b.File))
	})
}

func (e *Exporter) matches(name string) bool {
	return e.cfg.name == "" || strings.EqualFold(e.cfg.name, name)
}

func (e *Exporter) record(entry Entry) {
	e.mu.Lock()
	e.entries = append(e.entries, entry)
	e.mu.Unlock()
}

// archiveWriter writes the files of one archive into its own directory.
type archiveWriter struct {
	e      *Exporter
	src    string
	name   string
	dir    string
	logger *slog.Logger
	used   map[string]struct{}
}

func (e *Exporter) newArchiveWriter(src string) *archiveWriter {
	e.mu.Lock()
	name := e.archiveName(src)
	e.mu.Unlock()
	return &archiveWriter{
		e:      e,
		src:    src,
		name:   name,
		dir:    filepath.Join(e.outDir, name),
		logger: e.cfg.logger.With("archive", src),
		used:   make(map[string]struct{}),
	}
}

func (w *archiveWriter) skip(msg string, err error, attrs ...any) {
	w.logger.Warn(msg+", skipping", append(attrs, "error", err)...)
}

// fileName picks a unique file name for the object. Objects sharing a name
// are told apart by their path ID.
func (w *archiveWriter) fileName(name, class string, pathID int64, ext string) string {
	file := objectName(name, class, pathID) + ext
	if _, dup := w.used[file]; dup {
		file = objectName(name, class, pathID) + "_" + strconv.FormatInt(pathID, 10) + ext
	}
	w.used[file] = struct{}{}
	return file
}

func (w *archiveWriter) write(kind Kind, name string, o *serialized.Object, ext string, data []byte) error {
	file := w.fileName(name, o.ClassID().String(), o.PathID(), ext)
	if err := w.writeFile(file, data); err != nil {
		return err
	}
	w.e.record(Entry{Archive: w.src, Kind: kind, Name: name, PathID: o.PathID(), File: filepath.Join(w.name, file)})
	w.logger.Debug("exported", "kind", kind, "name", name, "file", file)
	return nil
}

func (w *archiveWriter) writeFile(file string, data []byte) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("create dir %s: %w", w.dir, err)
	}
	full := filepath.Join(w.dir, file)
	if err := os.WriteFile(full, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", full, err)
	}
	return nil
}

// objectName returns a file system safe name for an object, falling back to
// the class and path ID for unnamed objects.
func objectName(name, class string, pathID int64) string {
	if name == "" {
		return class + "_" + strconv.FormatInt(pathID, 10)
	}
	return sanitize(name)
}

// sanitize replaces characters that cannot appear in a file name.
func sanitize(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return "_"
	}
	return name
}
