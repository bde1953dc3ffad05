package app

import (
	"log"
	"strings"

	"github.com/ExplainThisPR/explain-this-pr/app/models"
)

// chunkCharLimit keeps one batch of patches within the model's context budget.
const chunkCharLimit = 9000

// deletedFilePlaceholder stands in for the patch of a removed file, since the
// API returns no diff body for deletions.
const deletedFilePlaceholder = "File deleted"

// skipSubstrings excludes files that carry no reviewable signal.
var skipSubstrings = []string{
	"test",
	"spec",
	"mock",
	"fixture",
	"package.json",
	"package-lock.json",
	"icon",
}

// sourceExtensions is the allow-list of extensions we consider source code.
var sourceExtensions = []string{
	".ts", ".tsx", ".js", ".jsx", ".mjs",
	".py", ".go", ".rs", ".java", ".rb", ".php",
	".c", ".cc", ".cpp", ".h", ".hpp", ".cs",
	".swift", ".kt", ".kts", ".scala", ".m",
	".sh", ".sql", ".html", ".css", ".scss", ".vue", ".svelte",
}

// FilterFiles drops files that are not worth summarizing and replaces the
// patch of removed files with a placeholder. Relative order is preserved.
func FilterFiles(files []models.ChangedFile) []models.ChangedFile {
	result := make([]models.ChangedFile, 0, len(files))
	for _, file := range files {
		filename := strings.ToLower(file.Filename)
		if containsAny(filename, skipSubstrings) {
			continue
		}
		if file.Changes < 1 {
			continue
		}
		if !isSourceFile(filename) {
			continue
		}
		if file.Status == "removed" {
			file.Patch = deletedFilePlaceholder
		}
		result = append(result, file)
	}

	log.Printf("files before filter: %d", len(files))
	log.Printf("files after filter: %d", len(result))
	return result
}

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func isSourceFile(filename string) bool {
	idx := strings.LastIndex(filename, ".")
	if idx == -1 {
		return false
	}
	ext := filename[idx:]
	for _, allowed := range sourceExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// ChunkFiles packs files in order into batches of at most limit characters of
// patch text. A batch boundary opens when the next file would overflow the
// current batch; the first file of a fresh batch always lands in it, even if
// it alone exceeds the limit. Files are never split or reordered.
func ChunkFiles(files []models.ChangedFile, limit int) []models.FileBatch {
	if limit <= 0 {
		limit = chunkCharLimit
	}

	var batches []models.FileBatch
	var current models.FileBatch
	totalChars := 0

	for _, file := range files {
		content := file.Patch
		if len(current) > 0 && totalChars+len(content) > limit {
			batches = append(batches, current)
			current = nil
			totalChars = 0
		}
		current = append(current, models.BatchFile{Filename: file.Filename, Content: content})
		totalChars += len(content)
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}

	log.Printf("number of chunks to send: %d", len(batches))
	return batches
}

// sumChanges is the projected lines-of-code cost of analyzing these files.
func sumChanges(files []models.ChangedFile) int {
	total := 0
	for _, file := range files {
		total += file.Changes
	}
	return total
}
