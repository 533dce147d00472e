package resolver

import "time"

// SourceType represents the type of source being resolved
type SourceType int

const (
	// SourceTypeUnknown represents an unknown source type
	SourceTypeUnknown SourceType = iota
	// SourceTypeFile represents a single manifest file
	SourceTypeFile
	// SourceTypeRemote represents a remote HTTP/HTTPS manifest
	SourceTypeRemote
	// SourceTypeFolder represents a directory of captured manifest refreshes
	SourceTypeFolder
)

// String returns the string representation of a SourceType
func (st SourceType) String() string {
	switch st {
	case SourceTypeFile:
		return "file"
	case SourceTypeRemote:
		return "remote"
	case SourceTypeFolder:
		return "folder"
	default:
		return "unknown"
	}
}

// ResolverMetadata contains information about the resolved source
type ResolverMetadata struct {
	// Name of the source, the file or URL base name
	Name string
	// Type is the source type (file, folder, remote)
	Type SourceType
	// Path is the path or URL of the source
	Path string
	// Size is the total size of the resolved manifests in bytes
	Size int64
	// ModTime is the last modification time of the source, the fetch time for remote sources
	ModTime time.Time
	// Extra contains additional metadata specific to the source type
	Extra map[string]interface{}
}
