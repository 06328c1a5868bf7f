package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var (
	textExtensions = []string{".txt", ".md", ".markdown", ".text"}
	sizeUnits      = "KMGTPE"
)

// ValidateInputFile checks that filename names a readable regular file
func ValidateInputFile(filename string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	info, err := os.Stat(filename)
	switch {
	case os.IsNotExist(err):
		return fmt.Errorf("file does not exist: %s", filename)
	case err != nil:
		return fmt.Errorf("cannot access file %s: %w", filename, err)
	case !info.Mode().IsRegular():
		return fmt.Errorf("not a regular file: %s", filename)
	}

	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("cannot read file %s: %w", filename, err)
	}
	return f.Close()
}

// ValidateOutputFile makes sure the parent directory of filename exists.
// An empty filename means stdout.
func ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil
	}
	dir := filepath.Dir(filename)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("cannot create directory %s: %w", dir, err)
	}
	return nil
}

// fileExtension returns the lowercase extension including the dot
func fileExtension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// IsTextFile reports whether filename looks like a plain text resume or job description
func IsTextFile(filename string) bool {
	return slices.Contains(textExtensions, fileExtension(filename))
}

// IsPDFFile reports whether filename has a .pdf extension, in any case
func IsPDFFile(filename string) bool {
	return fileExtension(filename) == ".pdf"
}

// FormatFileSize renders size in binary units, e.g. "5.0 MB"
func FormatFileSize(size int64) string {
	if size < 1024 {
		return fmt.Sprintf("%d B", size)
	}
	value, exp := float64(size)/1024, 0
	for value >= 1024 && exp < len(sizeUnits)-1 {
		value /= 1024
		exp++
	}
	return fmt.Sprintf("%.1f %cB", value, sizeUnits[exp])
}
