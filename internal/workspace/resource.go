// Package workspace models the host workspace: resource handles, path
// normalisation and classpath resolution.
package workspace

import (
	"path"
	"strings"
)

// ResourceType distinguishes files from containers.
type ResourceType uint8

const (
	// TypeFile is a regular file.
	TypeFile ResourceType = iota + 1
	// TypeFolder is a folder inside a project.
	TypeFolder
	// TypeProject is the project root itself.
	TypeProject
)

func (t ResourceType) String() string {
	switch t {
	case TypeFile:
		return "file"
	case TypeFolder:
		return "folder"
	case TypeProject:
		return "project"
	}
	return "unknown"
}

// Resource is a handle to a workspace resource.
// FullPath is workspace-relative and slash separated, e.g. "/proj/src/A.java".
type Resource struct {
	FullPath string
	Type     ResourceType
}

// File returns a file handle for fullPath.
func File(fullPath string) Resource {
	return Resource{FullPath: fullPath, Type: TypeFile}
}

// Name returns the last segment of the resource path.
func (r Resource) Name() string {
	trimmed := strings.TrimSuffix(r.FullPath, "/")
	if trimmed == "" {
		return ""
	}
	return path.Base(trimmed)
}

// IsFile reports whether r is a regular file.
func (r Resource) IsFile() bool {
	return r.Type == TypeFile
}

func (r Resource) String() string {
	return r.FullPath
}
