// Package request builds the document handed to the external build tool.
package request

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
)

// Element names of the request document.
const (
	TagRoot      = "builder-options"
	TagWorkspace = "workspace-path"
	TagProject   = "project-path"
	TagOutput    = "output-path"
	TagClasspath = "classpath"
	TagResource  = "resource"
)

// BuildRequest is everything the tool needs for one build. All paths are
// absolute and platform native.
type BuildRequest struct {
	WorkspacePath string
	ProjectPath   string
	OutputPath    string
	Classpath     []string
	Resources     []string
}

// Validate checks that every path of r is absolute.
func (r *BuildRequest) Validate() error {
	if r == nil {
		return fmt.Errorf("missing build request")
	}
	check := func(field, p string) error {
		if !filepath.IsAbs(p) {
			return fmt.Errorf("%s %q is not absolute", field, p)
		}
		return nil
	}
	if err := check(TagWorkspace, r.WorkspacePath); err != nil {
		return err
	}
	if err := check(TagProject, r.ProjectPath); err != nil {
		return err
	}
	if err := check(TagOutput, r.OutputPath); err != nil {
		return err
	}
	for _, p := range r.Classpath {
		if err := check(TagClasspath, p); err != nil {
			return err
		}
	}
	for _, p := range r.Resources {
		if err := check(TagResource, p); err != nil {
			return err
		}
	}
	return nil
}

// Encode writes r to w as a single well-formed document.
func Encode(w io.Writer, r *BuildRequest) error {
	if r == nil {
		return fmt.Errorf("missing build request")
	}
	x := NewWriter(w)
	x.Element(TagRoot).StartChildren()
	x.Element(TagWorkspace).Text(r.WorkspacePath)
	x.Element(TagProject).Text(r.ProjectPath)
	x.Element(TagOutput).Text(r.OutputPath)
	for _, cp := range r.Classpath {
		x.Element(TagClasspath).Text(cp)
	}
	for _, res := range r.Resources {
		x.Element(TagResource).Text(res)
	}
	x.EndChildren()
	if err := x.Close(); err != nil {
		return fmt.Errorf("encode build request: %w", err)
	}
	return nil
}

// Bytes returns the encoded document for r.
func Bytes(r *BuildRequest) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
