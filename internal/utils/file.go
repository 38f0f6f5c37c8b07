package utils

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// GetFileExtension returns the file extension without the dot
func GetFileExtension(filename string) string {
	ext := filepath.Ext(filename)
	if len(ext) > 0 {
		return strings.ToLower(ext[1:])
	}
	return ""
}

// IsImageFile checks if a file has an extension the cropper can decode
func IsImageFile(filename string) bool {
	switch GetFileExtension(filename) {
	case "jpg", "jpeg", "png", "webp":
		return true
	}
	return false
}

// isURL mirrors processing.IsURL without importing it
func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// baseName returns the input's name without extension. URLs use the last
// path segment, or a random name when the path has none.
func baseName(input string) string {
	if isURL(input) {
		name := ""
		if u, err := url.Parse(input); err == nil && strings.Trim(u.Path, "/") != "" {
			name = path.Base(u.Path)
		}
		name = SanitizeFilename(strings.TrimSuffix(name, path.Ext(name)))
		if name == "" {
			return "image-" + uuid.NewString()[:8]
		}
		return name
	}
	base := filepath.Base(input)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// GenerateOutputFilename generates an output filename based on input and parameters
func GenerateOutputFilename(input, outputDir, prefix, suffix, format string) string {
	return OutputFilename(input, baseName(input), outputDir, prefix, suffix, format)
}

// OutputFilename builds an output filename from a base name chosen by the
// caller, typically one returned by UniqueBaseNames. The format defaults to
// the input's own extension, or jpg.
func OutputFilename(input, base, outputDir, prefix, suffix, format string) string {
	if format == "" {
		format = GetFileExtension(input)
		if isURL(input) || !IsImageFile(input) {
			format = "jpg"
		}
	}

	outputName := fmt.Sprintf("%s%s%s.%s", prefix, base, suffix, format)
	return filepath.Join(outputDir, outputName)
}

// UniqueBaseNames assigns every input a base name for its outputs. Inputs
// sharing a name (same file in different folders, or different extensions)
// keep the name for the first one and get "-2", "-3", ... after it. Names are
// compared case-insensitively and a numbered name never takes another
// input's natural name.
func UniqueBaseNames(inputs []string) map[string]string {
	natural := make(map[string]string, len(inputs))
	taken := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		if _, ok := natural[in]; ok {
			continue
		}
		name := baseName(in)
		natural[in] = name
		taken[strings.ToLower(name)] = true
	}

	names := make(map[string]string, len(natural))
	used := make(map[string]bool, len(natural))
	for _, in := range inputs {
		if _, ok := names[in]; ok {
			continue
		}
		name := natural[in]
		if used[strings.ToLower(name)] {
			for n := 2; ; n++ {
				candidate := fmt.Sprintf("%s-%d", natural[in], n)
				if !taken[strings.ToLower(candidate)] {
					name = candidate
					break
				}
			}
		}
		taken[strings.ToLower(name)] = true
		used[strings.ToLower(name)] = true
		names[in] = name
	}
	return names
}

// ListImageFiles recursively lists all image files in a directory
func ListImageFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() && IsImageFile(path) {
			files = append(files, path)
		}

		return nil
	})

	return files, err
}

// DirExists checks if a directory exists
func DirExists(dirname string) bool {
	info, err := os.Stat(dirname)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// SanitizeFilename removes or replaces invalid characters in filenames
func SanitizeFilename(filename string) string {
	invalid := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|"}
	result := filename

	for _, char := range invalid {
		result = strings.ReplaceAll(result, char, "_")
	}

	// Remove leading/trailing spaces and dots
	return strings.Trim(result, " .")
}

// FormatFileSize formats file size in human-readable format
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}

	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
