package partflow

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ChunkPrefix is the namespace under which temp chunk objects live. Objects
// here never collide with final objects because IsValidObjectName rejects
// names starting with a dot segment.
const ChunkPrefix = ".chunks/"

// S3-compatible bucket naming: lowercase letters, digits, dots and hyphens,
// 3-63 characters, starting and ending with a letter or digit.
var validBucketNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

// IsValidBucketName reports whether name is acceptable to the storage
// backend.
func IsValidBucketName(name string) bool {
	return validBucketNameRegex.MatchString(name)
}

// IsValidObjectName validates an object key. It checks that the key:
//   - is not empty, ".", or "/"
//   - is relative and does not end with "/"
//   - does not contain "..", "//", or "." segments
//   - does not start with the temp chunk namespace
//   - does not contain \ ? # ~, control characters, or whitespace
//   - is valid UTF-8
func IsValidObjectName(name string) bool {
	if name == "" || name == "/" || name == "." {
		return false
	}

	if name[0] == '/' || name[0] == '.' {
		return false
	}

	if strings.HasSuffix(name, "/") {
		return false
	}

	if strings.Contains(name, "..") || strings.Contains(name, "//") {
		return false
	}

	if strings.Contains(name, "/./") || strings.HasSuffix(name, "/.") {
		return false
	}

	if strings.ContainsAny(name, `\?#~`) {
		return false
	}

	if !utf8.ValidString(name) {
		return false
	}

	for _, r := range name {
		if r == 0 || r < 0x20 || r == 0x7f || unicode.IsSpace(r) {
			return false
		}
	}

	return true
}

// ChunkObjectName derives the temp object name holding one chunk:
// .chunks/{uploadId}/{objectName}.part{chunkNumber}.
func ChunkObjectName(objectName, uploadID string, chunkNumber int) string {
	return fmt.Sprintf("%s%s/%s.part%d", ChunkPrefix, uploadID, objectName, chunkNumber)
}

// SessionChunkPrefix returns the prefix shared by all temp chunk objects of
// one session.
func SessionChunkPrefix(uploadID string) string {
	return ChunkPrefix + uploadID + "/"
}

// ParseChunkObjectName splits a temp chunk object name into uploadId and
// chunk number. ok is false when the name is not in the chunk namespace or
// the part suffix is malformed.
func ParseChunkObjectName(name string) (uploadID string, chunkNumber int, ok bool) {
	rest, found := strings.CutPrefix(name, ChunkPrefix)
	if !found {
		return "", 0, false
	}

	uploadID, rest, found = strings.Cut(rest, "/")
	if !found || uploadID == "" || rest == "" {
		return "", 0, false
	}

	idx := strings.LastIndex(rest, ".part")
	if idx < 0 {
		return "", 0, false
	}

	n, err := strconv.Atoi(rest[idx+len(".part"):])
	if err != nil || n < 1 {
		return "", 0, false
	}

	return uploadID, n, true
}
