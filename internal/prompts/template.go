package prompts

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
	"text/template"
)

// variablePattern matches template field references like {{.Context}}, {{ .Subject }}
// and the first field of a pipeline such as {{join .Choices ", "}}.
var variablePattern = regexp.MustCompile(`\{\{-?\s*(?:[a-z]+\s+)?\.([A-Za-z_][A-Za-z0-9_.]*)`)

// ExtractVariables extracts template variable names from a Go template string.
// For example, "Scenario: {{.Context}} about {{.Subject}}" returns ["Context", "Subject"].
func ExtractVariables(text string) []string {
	matches := variablePattern.FindAllStringSubmatch(text, -1)
	seen := make(map[string]bool)
	var vars []string

	for _, match := range matches {
		if len(match) > 1 {
			varName := match[1]
			if !seen[varName] {
				seen[varName] = true
				vars = append(vars, varName)
			}
		}
	}

	sort.Strings(vars)
	return vars
}

// HashText returns a SHA256 hash of the text for change detection.
func HashText(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// funcs are available to every template.
var funcs = template.FuncMap{
	"join": strings.Join,
	"trim": strings.TrimSpace,
}

func parse(key, text string) (*template.Template, error) {
	return template.New(key).Funcs(funcs).Option("missingkey=zero").Parse(text)
}
