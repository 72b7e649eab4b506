package image

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/Obirvalger/vml/internal/lockfile"
)

// rawRecord is the registry file form of a record. The name is the mapping
// key, so it does not appear here.
type rawRecord struct {
	Description     string   `yaml:"description,omitempty"`
	URL             string   `yaml:"url"`
	Change          []string `yaml:"change,omitempty"`
	UpdateAfterDays *int     `yaml:"update-after-days,omitempty"`
}

// ParseRegistry parses registry file contents. Decoding is strict: fields
// outside the record schema are rejected, but change tokens outside the
// directive vocabulary are accepted as opaque unknowns.
func ParseRegistry(data []byte) (Registry, error) {
	raw := make(map[string]rawRecord)
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return Registry{}, nil
		}
		return nil, fmt.Errorf("failed to parse registry: %w", err)
	}

	reg := make(Registry, len(raw))
	for name, rr := range raw {
		if rr.UpdateAfterDays != nil && *rr.UpdateAfterDays < 0 {
			return nil, &RecordError{Name: name, Reason: "update-after-days must be >= 0"}
		}
		rec := Record{
			Name:            name,
			Description:     rr.Description,
			URL:             rr.URL,
			UpdateAfterDays: rr.UpdateAfterDays,
		}
		for _, token := range rr.Change {
			rec.Change = append(rec.Change, ParseDirective(token))
		}
		reg[name] = rec
	}

	return reg, nil
}

// Serialize renders the registry with the given header block reproduced
// verbatim at the top, then one section per record in ascending name order.
// Field order within a section is fixed (description, url, change,
// update-after-days) and optional fields are omitted when empty, so identical
// registries always serialize to identical bytes.
func (r Registry) Serialize(header []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(header)

	if len(r) == 0 {
		return buf.Bytes(), nil
	}

	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, name := range r.Names() {
		root.Content = append(root.Content, scalarNode(name), recordNode(r[name]))
	}

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("failed to serialize registry: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to serialize registry: %w", err)
	}

	return buf.Bytes(), nil
}

func recordNode(rec Record) *yaml.Node {
	node := &yaml.Node{Kind: yaml.MappingNode}
	if rec.Description != "" {
		node.Content = append(node.Content, scalarNode("description"), scalarNode(rec.Description))
	}
	node.Content = append(node.Content, scalarNode("url"), scalarNode(rec.URL))
	if tokens := rec.ChangeTokens(); len(tokens) > 0 {
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, token := range tokens {
			seq.Content = append(seq.Content, scalarNode(token))
		}
		node.Content = append(node.Content, scalarNode("change"), seq)
	}
	if rec.UpdateAfterDays != nil {
		days := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(*rec.UpdateAfterDays)}
		node.Content = append(node.Content, scalarNode("update-after-days"), days)
	}
	return node
}

func scalarNode(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}

// LoadRegistryFile reads and parses the registry at path. A missing file is
// an empty registry, matching a fresh installation before the first update.
func LoadRegistryFile(path string) (Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Registry{}, nil
		}
		return nil, fmt.Errorf("failed to read registry file: %w", err)
	}
	reg, err := ParseRegistry(data)
	if err != nil {
		return nil, fmt.Errorf("registry file %s: %w", path, err)
	}
	return reg, nil
}

// WriteRegistryFile serializes the registry and replaces path atomically:
// the content lands in a uniquely named temp file in the same directory,
// is synced, and is renamed into place, so readers never observe a partial
// registry.
func WriteRegistryFile(path string, header []byte, reg Registry) error {
	data, err := reg.Serialize(header)
	if err != nil {
		return err
	}

	tmp := fmt.Sprintf("%s.%s.tmp", path, uuid.NewString())
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create temp registry file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write temp registry file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to sync temp registry file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close temp registry file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace registry file: %w", err)
	}

	return nil
}

// UpdateRegistryFile runs the full read-reconcile-write sequence against the
// registry at path under an exclusive advisory lock, merging canonical in and
// reproducing header at the top of the result. Nothing is written when
// reconciliation fails. The returned actions report what happened per name.
func UpdateRegistryFile(path string, header []byte, canonical Registry) ([]Action, error) {
	lock, err := lockfile.Acquire(path + ".lock")
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = lock.Release()
	}()

	old, err := LoadRegistryFile(path)
	if err != nil {
		return nil, err
	}

	merged, actions, err := Reconcile(old, canonical)
	if err != nil {
		return nil, err
	}

	if err := WriteRegistryFile(path, header, merged); err != nil {
		return nil, err
	}

	return actions, nil
}
