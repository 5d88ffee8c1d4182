// Package store reads and writes entity files: a YAML front-matter header
// followed by a free-form markdown body.
package store

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pmbrain/brain/internal/types"
)

const fence = "---"

// File is one entity file held in memory. The header is kept as a raw
// yaml.Node document so key order and unknown keys survive rewrites; the
// original header bytes are reused verbatim when nothing was mutated.
type File struct {
	doc       *yaml.Node
	rawHeader []byte
	body      string
	dirty     bool
}

// Parse splits data into front-matter and body. A file with no opening
// fence parses as header-less (HasHeader reports false); a fence with
// unparseable YAML inside is malformed.
func Parse(data []byte) (*File, error) {
	text := string(data)
	if !strings.HasPrefix(text, fence+"\n") {
		if text == fence {
			return nil, fmt.Errorf("%w: unterminated front-matter", types.ErrMalformed)
		}
		return &File{body: text}, nil
	}
	rest := text[len(fence)+1:]
	end := strings.Index(rest, "\n"+fence+"\n")
	var header, body string
	if end >= 0 {
		header = rest[:end+1]
		body = rest[end+1+len(fence)+1:]
	} else if strings.HasSuffix(rest, "\n"+fence) {
		header = rest[:len(rest)-len(fence)]
		body = ""
	} else {
		return nil, fmt.Errorf("%w: unterminated front-matter", types.ErrMalformed)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(header), &doc); err != nil {
		return nil, fmt.Errorf("%w: parsing front-matter: %v", types.ErrMalformed, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: front-matter is not a mapping", types.ErrMalformed)
	}
	return &File{doc: &doc, rawHeader: []byte(header), body: body}, nil
}

// NewFile builds a fresh file from a typed entity and body.
func NewFile(e *types.Entity, body string) (*File, error) {
	var doc yaml.Node
	if err := doc.Encode(e); err != nil {
		return nil, fmt.Errorf("encoding header: %w", err)
	}
	root := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{&doc}}
	return &File{doc: root, body: body, dirty: true}, nil
}

// HasHeader reports whether the file carried a front-matter block.
func (f *File) HasHeader() bool { return f.doc != nil }

// Body returns the file body verbatim.
func (f *File) Body() string { return f.body }

// SetBody replaces the body.
func (f *File) SetBody(body string) {
	f.body = body
	f.dirty = true
}

// Decode unmarshals the header into out.
func (f *File) Decode(out interface{}) error {
	if f.doc == nil {
		return fmt.Errorf("%w: no front-matter header", types.ErrMalformed)
	}
	if err := f.doc.Decode(out); err != nil {
		return fmt.Errorf("%w: decoding front-matter: %v", types.ErrMalformed, err)
	}
	return nil
}

// Entity decodes the header into a typed entity view.
func (f *File) Entity() (*types.Entity, error) {
	var e types.Entity
	if err := f.Decode(&e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (f *File) mapping() *yaml.Node {
	if f.doc == nil {
		return nil
	}
	return f.doc.Content[0]
}

// Get returns the value node for a top-level header key.
func (f *File) Get(key string) (*yaml.Node, bool) {
	m := f.mapping()
	if m == nil {
		return nil, false
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1], true
		}
	}
	return nil, false
}

// Set writes one top-level header key, replacing it in place when present
// and appending it otherwise. Untouched keys keep their order and style.
func (f *File) Set(key string, value interface{}) error {
	if f.doc == nil {
		f.doc = &yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode}},
		}
	}
	var vn yaml.Node
	if err := vn.Encode(value); err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	m := f.mapping()
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = &vn
			f.dirty = true
			return nil
		}
	}
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&vn)
	f.dirty = true
	return nil
}

// Delete removes a top-level header key if present.
func (f *File) Delete(key string) {
	m := f.mapping()
	if m == nil {
		return
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content = append(m.Content[:i], m.Content[i+2:]...)
			f.dirty = true
			return
		}
	}
}

// Encode renders the file back to bytes. When no header key was touched,
// the original header bytes are emitted unchanged so unmutated files
// round-trip byte-for-byte.
func (f *File) Encode() ([]byte, error) {
	if f.doc == nil {
		return []byte(f.body), nil
	}
	header := f.rawHeader
	if f.dirty || header == nil {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(f.doc); err != nil {
			return nil, fmt.Errorf("encoding front-matter: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encoding front-matter: %w", err)
		}
		header = buf.Bytes()
	}
	var out bytes.Buffer
	out.WriteString(fence + "\n")
	out.Write(header)
	if len(header) == 0 || header[len(header)-1] != '\n' {
		out.WriteByte('\n')
	}
	out.WriteString(fence + "\n")
	out.WriteString(f.body)
	return out.Bytes(), nil
}
