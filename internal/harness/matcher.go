package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// expectedPrefix marks a directory entry as a golden candidate.
const expectedPrefix = "expected"

// Candidate is one golden file's name and full text.
type Candidate struct {
	Name string
	Text string
}

// CandidateNames filters directory entry names down to golden candidates:
// the portion of the name before the first path separator must have the
// "expected" prefix. The slash handling tolerates listings that report
// entries inside subdirectories.
func CandidateNames(entries []string) []string {
	var names []string
	for _, entry := range entries {
		name, _, _ := strings.Cut(entry, "/")
		if strings.HasPrefix(name, expectedPrefix) {
			names = append(names, name)
		}
	}
	return names
}

// TruncatedEqual reports whether actual matches expected under the
// truncation rule: when expected is shorter than actual only the
// same-length prefix of actual is compared, tolerating output that
// legitimately continues beyond what the golden file captured. When
// expected is at least as long, the full strings must be equal.
func TruncatedEqual(expected, actual string) bool {
	if len(expected) < len(actual) {
		actual = actual[:len(expected)]
	}
	return expected == actual
}

// MatchCandidates applies the matching policy: the model passes as soon
// as any candidate matches, and iteration stops there. When none match,
// the last candidate compared is returned as the failure exemplar. Zero
// candidates is a vacuous pass.
func MatchCandidates(candidates []Candidate, actual string) (pass bool, exemplar string) {
	if len(candidates) == 0 {
		return true, ""
	}
	for _, candidate := range candidates {
		if TruncatedEqual(candidate.Text, actual) {
			return true, ""
		}
		exemplar = candidate.Text
	}
	return false, exemplar
}

// readCandidates lists modelDir and reads every golden candidate in full.
// Directory entries whose name matches the prefix are skipped: a
// directory has no text to compare, and treating it as an empty
// expectation would vacuously match everything.
func readCandidates(modelDir string) ([]Candidate, error) {
	entries, err := os.ReadDir(modelDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list model directory %s: %w", modelDir, err)
	}

	var candidates []Candidate
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, _, _ := strings.Cut(entry.Name(), "/")
		if !strings.HasPrefix(name, expectedPrefix) {
			continue
		}
		path := filepath.Join(modelDir, name)
		text, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read expected file %s: %w", path, err)
		}
		candidates = append(candidates, Candidate{Name: name, Text: string(text)})
	}
	return candidates, nil
}
