package core

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	BinarySampleSize   = 8192 // Bytes to sample for text/binary detection
	BinaryThresholdPct = 10   // Max % non-printable chars for text content
)

// DetectFileType determines if content is likely text or binary.
// Returns true if the content appears to be text.
//
// Detection heuristic (in order):
//  1. Null bytes present → binary
//  2. Invalid UTF-8 → binary
//  3. >10% non-printable control chars → binary
func DetectFileType(data []byte) bool {
	if len(data) == 0 {
		return true
	}

	if bytes.IndexByte(data, 0) != -1 {
		return false
	}

	sampleSize := min(len(data), BinarySampleSize)
	sample := data[:sampleSize]

	// A multi-byte rune may be cut at the sample boundary.
	for i := 0; i < utf8.UTFMax-1 && len(sample) < len(data) && !utf8.Valid(sample); i++ {
		sample = sample[:len(sample)-1]
	}
	if !utf8.Valid(sample) {
		return false
	}

	nonPrintable := 0
	for _, b := range sample {
		// Allow common whitespace: tab, newline, carriage return
		if b < 32 && b != '\t' && b != '\n' && b != '\r' {
			nonPrintable++
		}
		if b == 127 {
			nonPrintable++
		}
	}

	threshold := len(sample) * BinaryThresholdPct / 100
	return nonPrintable <= threshold
}

// CompareFiles checks if two contents are identical (by SHA-256 hash)
func CompareFiles(a, b []byte) bool {
	hashA := sha256.Sum256(a)
	hashB := sha256.Sum256(b)
	return bytes.Equal(hashA[:], hashB[:])
}

// GenerateUnifiedDiff generates a unified diff between the sealed and the
// local content. Returns an empty string if they are identical.
func GenerateUnifiedDiff(name string, sealed, local []byte) (string, error) {
	if CompareFiles(sealed, local) {
		return "", nil
	}

	if !DetectFileType(sealed) || !DetectFileType(local) {
		return fmt.Sprintf("Binary content %s has changed\n", name), nil
	}

	dmp := diffmatchpatch.New()

	// Line-mode diff for readable hunks
	sealedStr, localStr := string(sealed), string(local)
	a, b, lineArray := dmp.DiffLinesToChars(sealedStr, localStr)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	patches := dmp.PatchMake(sealedStr, diffs)
	if len(patches) == 0 {
		return "", nil
	}

	var result strings.Builder
	fmt.Fprintf(&result, "--- sealed/%s\n", name)
	fmt.Fprintf(&result, "+++ local/%s\n", name)
	result.WriteString(dmp.PatchToText(patches))

	return result.String(), nil
}
