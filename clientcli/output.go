package clientcli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Formatter formats results for output.
type Formatter interface {
	FormatUpload(w io.Writer, result *UploadResult) error
	FormatChunks(w io.Writer, uploadID string, chunks []int) error
	FormatAbort(w io.Writer, uploadID string) error
	FormatError(w io.Writer, err error) error
	FormatProfileList(w io.Writer, profiles []Profile, defaultName string) error
	FormatProfileShow(w io.Writer, profile Profile, isDefault bool) error
}

// NewFormatter returns the appropriate formatter based on flags.
func NewFormatter(jsonOutput, quiet bool) Formatter {
	if jsonOutput {
		return &JSONFormatter{}
	}
	return &HumanFormatter{Quiet: quiet}
}

// HumanFormatter outputs human-readable text.
type HumanFormatter struct {
	Quiet bool
}

// FormatUpload formats an upload result as human-readable text.
func (f *HumanFormatter) FormatUpload(w io.Writer, result *UploadResult) error {
	if f.Quiet {
		return nil
	}
	if result.InstantUpload {
		_, _ = fmt.Fprintf(w, "Instant upload: %s (%s) already stored\n", result.ObjectName, formatSize(result.Size))
	} else {
		_, _ = fmt.Fprintf(w, "Uploaded: %s (%s)\n", result.ObjectName, formatSize(result.Size))
		_, _ = fmt.Fprintf(w, "  Chunks sent: %d", result.ChunksSent)
		if result.ChunksSkipped > 0 {
			_, _ = fmt.Fprintf(w, " (resumed, %d already present)", result.ChunksSkipped)
		}
		_, _ = fmt.Fprintln(w)
	}
	if result.Checksum != "" {
		_, _ = fmt.Fprintf(w, "  Checksum: %s\n", result.Checksum)
	}
	if result.FileURL != "" {
		_, _ = fmt.Fprintf(w, "  URL: %s\n", result.FileURL)
	}
	return nil
}

// FormatChunks formats the uploaded-chunk listing as human-readable text.
func (f *HumanFormatter) FormatChunks(w io.Writer, uploadID string, chunks []int) error {
	if len(chunks) == 0 {
		_, _ = fmt.Fprintf(w, "Upload %s: no chunks received yet\n", uploadID)
		return nil
	}
	parts := make([]string, len(chunks))
	for i, n := range chunks {
		parts[i] = fmt.Sprintf("%d", n)
	}
	_, _ = fmt.Fprintf(w, "Upload %s: %d chunk(s) received: %s\n", uploadID, len(chunks), strings.Join(parts, ", "))
	return nil
}

// FormatAbort formats an abort confirmation as human-readable text.
func (f *HumanFormatter) FormatAbort(w io.Writer, uploadID string) error {
	if !f.Quiet {
		_, _ = fmt.Fprintf(w, "Aborted upload %s\n", uploadID)
	}
	return nil
}

// FormatError formats an error as human-readable text.
func (f *HumanFormatter) FormatError(w io.Writer, err error) error {
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	return nil
}

// FormatProfileList formats a list of profiles as human-readable text.
func (f *HumanFormatter) FormatProfileList(w io.Writer, profiles []Profile, defaultName string) error {
	// Calculate column widths
	maxNameLen := 4     // "NAME"
	maxEndpointLen := 8 // "ENDPOINT"
	for i := range profiles {
		if len(profiles[i].Name) > maxNameLen {
			maxNameLen = len(profiles[i].Name)
		}
		if len(profiles[i].Endpoint) > maxEndpointLen {
			maxEndpointLen = len(profiles[i].Endpoint)
		}
	}
	if maxNameLen > 20 {
		maxNameLen = 20
	}
	if maxEndpointLen > 50 {
		maxEndpointLen = 50
	}

	// Print header
	_, _ = fmt.Fprintf(w, "  %-*s  %-*s  %s\n", maxNameLen, "NAME", maxEndpointLen, "ENDPOINT", "BUCKET")
	_, _ = fmt.Fprintf(w, "  %s  %s  %s\n", strings.Repeat("-", maxNameLen), strings.Repeat("-", maxEndpointLen), strings.Repeat("-", 20))

	// Print profiles
	for i := range profiles {
		p := &profiles[i]
		marker := " "
		if p.Name == defaultName {
			marker = "*"
		}

		name := p.Name
		if len(name) > maxNameLen {
			name = name[:maxNameLen-3] + "..."
		}

		endpoint := p.Endpoint
		if len(endpoint) > maxEndpointLen {
			endpoint = endpoint[:maxEndpointLen-3] + "..."
		}

		bucket := p.Bucket
		if bucket == "" {
			bucket = "(not set)"
		}

		_, _ = fmt.Fprintf(w, "%s %-*s  %-*s  %s\n", marker, maxNameLen, name, maxEndpointLen, endpoint, bucket)
	}

	return nil
}

// FormatProfileShow formats a single profile as human-readable text.
func (f *HumanFormatter) FormatProfileShow(w io.Writer, profile Profile, isDefault bool) error {
	_, _ = fmt.Fprintf(w, "Name:     %s", profile.Name)
	if isDefault {
		_, _ = fmt.Fprintf(w, " (default)")
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "Endpoint: %s\n", profile.Endpoint)
	bucket := profile.Bucket
	if bucket == "" {
		bucket = "(not set)"
	}
	_, _ = fmt.Fprintf(w, "Bucket:   %s\n", bucket)
	return nil
}

// JSONFormatter outputs JSON.
type JSONFormatter struct{}

// FormatUpload formats an upload result as JSON.
func (f *JSONFormatter) FormatUpload(w io.Writer, result *UploadResult) error {
	return writeJSON(w, result)
}

// FormatChunks formats the uploaded-chunk listing as JSON.
func (f *JSONFormatter) FormatChunks(w io.Writer, uploadID string, chunks []int) error {
	output := struct {
		UploadID       string `json:"upload_id"`
		UploadedChunks []int  `json:"uploaded_chunks"`
	}{
		UploadID:       uploadID,
		UploadedChunks: chunks,
	}
	if output.UploadedChunks == nil {
		output.UploadedChunks = []int{}
	}
	return writeJSON(w, output)
}

// FormatAbort formats an abort confirmation as JSON.
func (f *JSONFormatter) FormatAbort(w io.Writer, uploadID string) error {
	output := struct {
		UploadID string `json:"upload_id"`
		Aborted  bool   `json:"aborted"`
	}{
		UploadID: uploadID,
		Aborted:  true,
	}
	return writeJSON(w, output)
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	output := struct {
		Error string `json:"error"`
	}{
		Error: err.Error(),
	}
	return writeJSON(w, output)
}

// FormatProfileList formats a list of profiles as JSON.
func (f *JSONFormatter) FormatProfileList(w io.Writer, profiles []Profile, defaultName string) error {
	type jsonProfile struct {
		Name     string `json:"name"`
		Endpoint string `json:"endpoint"`
		Bucket   string `json:"bucket,omitempty"`
		Default  bool   `json:"default,omitempty"`
	}

	output := struct {
		Profiles []jsonProfile `json:"profiles"`
	}{
		Profiles: make([]jsonProfile, len(profiles)),
	}

	for i := range profiles {
		p := &profiles[i]
		output.Profiles[i] = jsonProfile{
			Name:     p.Name,
			Endpoint: p.Endpoint,
			Bucket:   p.Bucket,
			Default:  p.Name == defaultName,
		}
	}

	return writeJSON(w, output)
}

// FormatProfileShow formats a single profile as JSON.
func (f *JSONFormatter) FormatProfileShow(w io.Writer, profile Profile, isDefault bool) error {
	output := struct {
		Name     string `json:"name"`
		Endpoint string `json:"endpoint"`
		Bucket   string `json:"bucket,omitempty"`
		Default  bool   `json:"default"`
	}{
		Name:     profile.Name,
		Endpoint: profile.Endpoint,
		Bucket:   profile.Bucket,
		Default:  isDefault,
	}
	return writeJSON(w, output)
}

// writeJSON writes a value as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.1f TB", float64(bytes)/TB)
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
