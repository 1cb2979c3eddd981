// Package container turns an uploaded model file into decodable payload
// bytes. It understands single-file containers (STL), packaged containers
// (3MF, an OPC zip), and plain zip wrappers around either.
package container

import (
	"fmt"
	"path"
	"regexp"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// Format classifies a container by the decoder family it feeds.
type Format string

const (
	// FormatSTL is a single-file triangle container.
	FormatSTL Format = "stl"
	// Format3MF is a packaged container: a zip with a model part inside.
	Format3MF Format = "3mf"
	// FormatZip is a plain zip wrapper that holds one of the other two.
	FormatZip Format = "zip"
)

// Entry is one file inside an opened archive.
type Entry interface {
	Name() string
	Size() uint64
	Bytes() ([]byte, error)
}

// Unzipper opens a zip archive held in memory. The loader receives it as an
// injected dependency so package policy stays testable without real
// archives.
type Unzipper interface {
	Open(data []byte) ([]Entry, error)
}

// Extra is an auxiliary text entry carried alongside the model payload for
// the metadata scan, such as slicer config files packaged next to the model
// part.
type Extra struct {
	Name string
	Data []byte
}

// Payload is the located, unpacked model ready for decoding.
type Payload struct {
	Format Format
	// Model holds the raw bytes of the mesh document: the STL stream or the
	// 3MF model part XML.
	Model []byte
	// Extras holds small auxiliary entries from packaged containers.
	Extras []Extra
}

// FormatError reports a container that cannot be classified or unpacked.
// Decoding never starts when it is returned.
type FormatError struct {
	Filename string
	Reason   string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("container: %s: %s", e.Filename, e.Reason)
}

// Detect classifies a filename by extension, case-insensitively. Unknown
// extensions are an error; guessing a decoder from content alone is not
// worth the misparses it invites.
func Detect(filename string) (Format, error) {
	switch strings.ToLower(path.Ext(filename)) {
	case ".stl":
		return FormatSTL, nil
	case ".3mf":
		return Format3MF, nil
	case ".zip":
		return FormatZip, nil
	default:
		return "", &FormatError{Filename: filename, Reason: "unrecognized extension"}
	}
}

// maxWrapDepth bounds how many zip wrappers Load unwraps before giving up.
// A 3MF inside a plain zip needs two levels; anything deeper is hostile.
const maxWrapDepth = 2

// maxExtraBytes caps the size of auxiliary entries collected for the
// metadata scan. Larger entries are skipped, never truncated.
const maxExtraBytes = 1 << 20

// relationship type of the 3MF model part in _rels/.rels.
const modelRelType = "http://schemas.microsoft.com/3dmanufacturing/2013/01/3dmodel"

// conventionalModelPath is where nearly every 3MF writer puts the model part.
const conventionalModelPath = "3D/3dmodel.model"

// Loader locates and unpacks model payloads. Construct with NewLoader.
type Loader struct {
	unzip Unzipper
	log   *zap.Logger
}

// NewLoader returns a loader using the given unzip capability. A nil logger
// falls back to a no-op logger.
func NewLoader(unzip Unzipper, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{unzip: unzip, log: log}
}

// Load classifies data by filename and returns the decodable payload. For
// packaged containers it locates the model part by relationship, then by the
// conventional path, then by a largest-entry scan. Plain zip wrappers are
// unwrapped to the first recognized mesh entry.
func (l *Loader) Load(data []byte, filename string) (*Payload, error) {
	return l.load(data, filename, 0)
}

func (l *Loader) load(data []byte, filename string, depth int) (*Payload, error) {
	format, err := Detect(filename)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatSTL:
		return &Payload{Format: FormatSTL, Model: data}, nil
	case Format3MF:
		return l.openPackage(data, filename)
	default:
		if depth >= maxWrapDepth {
			return nil, &FormatError{Filename: filename, Reason: "zip wrappers nested too deeply"}
		}
		return l.unwrap(data, filename, depth)
	}
}

// unwrap scans a plain zip for the first entry with a recognized mesh
// extension and loads that entry as its own container. Nested zips are
// considered only when no mesh entry exists at this level.
func (l *Loader) unwrap(data []byte, filename string, depth int) (*Payload, error) {
	entries, err := l.unzip.Open(data)
	if err != nil {
		return nil, &FormatError{Filename: filename, Reason: fmt.Sprintf("not a readable zip: %v", err)}
	}
	for _, exts := range [][]string{{".stl", ".3mf"}, {".zip"}} {
		for _, e := range entries {
			ext := strings.ToLower(path.Ext(e.Name()))
			if !slices.Contains(exts, ext) {
				continue
			}
			inner, err := e.Bytes()
			if err != nil {
				return nil, &FormatError{Filename: filename, Reason: fmt.Sprintf("read %s: %v", e.Name(), err)}
			}
			l.log.Debug("unwrapped zip entry",
				zap.String("container", filename),
				zap.String("entry", e.Name()))
			return l.load(inner, e.Name(), depth+1)
		}
	}
	// Some hosts serve 3MF packages under a plain .zip name. A zip holding
	// a model part is such a package, not a wrapper.
	for _, e := range entries {
		if strings.HasSuffix(strings.ToLower(e.Name()), ".model") {
			return l.openPackage(data, filename)
		}
	}
	return nil, &FormatError{Filename: filename, Reason: "zip holds no stl or 3mf entry"}
}

// openPackage locates the model part of a 3MF package and collects auxiliary
// entries for the metadata scan.
func (l *Loader) openPackage(data []byte, filename string) (*Payload, error) {
	entries, err := l.unzip.Open(data)
	if err != nil {
		return nil, &FormatError{Filename: filename, Reason: fmt.Sprintf("not a readable package: %v", err)}
	}
	byName := make(map[string]Entry, len(entries))
	for _, e := range entries {
		byName[strings.TrimPrefix(e.Name(), "/")] = e
	}

	target, how := locateModelPart(entries, byName)
	if target == nil {
		return nil, &FormatError{Filename: filename, Reason: "package holds no model part"}
	}
	model, err := target.Bytes()
	if err != nil {
		return nil, &FormatError{Filename: filename, Reason: fmt.Sprintf("read %s: %v", target.Name(), err)}
	}
	l.log.Debug("located model part",
		zap.String("container", filename),
		zap.String("entry", target.Name()),
		zap.String("via", how))

	return &Payload{Format: Format3MF, Model: model, Extras: collectExtras(entries, target.Name())}, nil
}

// Relationship elements are matched textually: attribute order varies by
// writer, so Type and Target are checked independently per element. A full
// OPC parser buys nothing here.
var relElemPattern = regexp.MustCompile(`(?s)<Relationship\s[^>]*>`)
var relTargetPattern = regexp.MustCompile(`Target="([^"]+)"`)

// locateModelPart applies the three location strategies in order and reports
// which one hit, for the debug log.
func locateModelPart(entries []Entry, byName map[string]Entry) (Entry, string) {
	if rels, ok := byName["_rels/.rels"]; ok {
		if raw, err := rels.Bytes(); err == nil {
			for _, elem := range relElemPattern.FindAllString(string(raw), -1) {
				if !strings.Contains(elem, modelRelType) {
					continue
				}
				m := relTargetPattern.FindStringSubmatch(elem)
				if m == nil {
					continue
				}
				if e, ok := byName[strings.TrimPrefix(m[1], "/")]; ok {
					return e, "relationship"
				}
			}
		}
	}
	if e, ok := byName[conventionalModelPath]; ok {
		return e, "conventional path"
	}
	var best Entry
	for _, e := range entries {
		if !strings.HasSuffix(strings.ToLower(e.Name()), ".model") {
			continue
		}
		if best == nil || e.Size() > best.Size() {
			best = e
		}
	}
	if best != nil {
		return best, "largest model entry"
	}
	return nil, ""
}

// collectExtras keeps small config and xml entries other than the model part
// itself. Slicers stash weight and material data in these.
func collectExtras(entries []Entry, modelName string) []Extra {
	var extras []Extra
	for _, e := range entries {
		if e.Name() == modelName || e.Size() > maxExtraBytes {
			continue
		}
		lower := strings.ToLower(e.Name())
		if !strings.HasSuffix(lower, ".config") && !strings.HasSuffix(lower, ".xml") {
			continue
		}
		data, err := e.Bytes()
		if err != nil {
			continue
		}
		extras = append(extras, Extra{Name: e.Name(), Data: data})
	}
	return extras
}
