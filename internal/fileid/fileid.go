// Package fileid derives stable identifiers for uploaded files.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"
)

const prefix = "sha256:"

// ContentHash returns a stable identifier for content. Identical bytes always yield
// the same hash regardless of the file name they were uploaded under.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return prefix + hex.EncodeToString(sum[:])
}

// SourceName reduces an uploaded file name to its base name, the form stored in
// document metadata. Client-supplied directories are dropped.
func SourceName(filename string) string {
	name := strings.ReplaceAll(filename, "\\", "/")
	name = path.Base(path.Clean("/" + name))
	if name == "/" || name == "." {
		return ""
	}
	return name
}
