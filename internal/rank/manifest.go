package rank

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// DetectManifest parses known manifest files at root and returns the set
// of declared entrypoint candidates whose target exists either in the
// scanned path set or on disk, per spec.md §4.2: "Only candidates whose
// target exists ... are promoted to confirmed entrypoints."
func DetectManifest(root string, scanned map[string]bool) *Manifest {
	m := &Manifest{Languages: map[string]bool{}}

	if data, err := os.ReadFile(filepath.Join(root, "package.json")); err == nil {
		m.Languages["javascript"] = true
		var pkg struct {
			Main   string          `json:"main"`
			Module string          `json:"module"`
			Types  string          `json:"types"`
			Bin    json.RawMessage `json:"bin"`
		}
		if json.Unmarshal(data, &pkg) == nil {
			for _, candidate := range []string{pkg.Main, pkg.Module, pkg.Types} {
				addCandidate(m, root, scanned, candidate)
			}
			var binStr string
			if json.Unmarshal(pkg.Bin, &binStr) == nil {
				addCandidate(m, root, scanned, binStr)
			} else {
				var binMap map[string]string
				if json.Unmarshal(pkg.Bin, &binMap) == nil {
					for _, v := range binMap {
						addCandidate(m, root, scanned, v)
					}
				}
			}
		}
	}

	if data, err := os.ReadFile(filepath.Join(root, "pyproject.toml")); err == nil {
		m.Languages["python"] = true
		scriptsRe := regexp.MustCompile(`(?ms)^\[project\.scripts\](.*?)(^\[|\z)`)
		if match := scriptsRe.FindStringSubmatch(string(data)); match != nil {
			lineRe := regexp.MustCompile(`(?m)^\s*[\w.-]+\s*=\s*"([\w.]+):`)
			for _, lm := range lineRe.FindAllStringSubmatch(match[1], -1) {
				modulePath := strings.ReplaceAll(lm[1], ".", "/") + ".py"
				addCandidate(m, root, scanned, modulePath)
			}
		}
	}

	if _, err := os.Stat(filepath.Join(root, "Cargo.toml")); err == nil {
		m.Languages["rust"] = true
		addCandidate(m, root, scanned, "src/main.rs")
	}

	if matches, _ := filepath.Glob(filepath.Join(root, "cmd", "*", "main.go")); len(matches) > 0 {
		m.Languages["go"] = true
		for _, match := range matches {
			rel, err := filepath.Rel(root, match)
			if err == nil {
				addCandidate(m, root, scanned, rel)
			}
		}
	}

	return m
}

func addCandidate(m *Manifest, root string, scanned map[string]bool, candidate string) {
	candidate = strings.TrimSpace(candidate)
	candidate = strings.TrimPrefix(candidate, "./")
	if candidate == "" {
		return
	}
	candidate = filepath.ToSlash(candidate)

	if scanned[candidate] {
		m.EntrypointCandidates = append(m.EntrypointCandidates, candidate)
		return
	}
	if _, err := os.Stat(filepath.Join(root, candidate)); err == nil {
		m.EntrypointCandidates = append(m.EntrypointCandidates, candidate)
	}
}
