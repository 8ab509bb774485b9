// Package prompts holds the model instructions, embedded at compile time as
// JSON files mapping a key to a template.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"
)

//go:embed *.json
var promptFiles embed.FS

// Prompt files and keys used by the roadmap flow
const (
	RoadmapFile      = "roadmap.json"
	RoadmapSystemKey = "roadmap-system"
	RoadmapUserKey   = "roadmap-user"
)

// Set is one prompt file, key to template
type Set map[string]string

// Keys returns the prompt keys, sorted
func (s Set) Keys() []string {
	keys := make([]string, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// every embedded file is parsed once, on first use
var loadSets = sync.OnceValues(func() (map[string]Set, error) {
	return parseSets(promptFiles)
})

func parseSets(fsys fs.FS) (map[string]Set, error) {
	names, err := fs.Glob(fsys, "*.json")
	if err != nil {
		return nil, err
	}
	sets := make(map[string]Set, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read prompt file %s: %w", name, err)
		}
		var set Set
		if err := json.Unmarshal(data, &set); err != nil {
			return nil, fmt.Errorf("failed to parse prompt file %s: %w", name, err)
		}
		sets[name] = set
	}
	return sets, nil
}

// Load returns the prompt set embedded as filename (e.g. "roadmap.json")
func Load(filename string) (Set, error) {
	sets, err := loadSets()
	if err != nil {
		return nil, err
	}
	set, ok := sets[filename]
	if !ok {
		return nil, fmt.Errorf("prompt file %s is not embedded", filename)
	}
	return set, nil
}

// Get retrieves one prompt by filename and key
func Get(filename, key string) (string, error) {
	set, err := Load(filename)
	if err != nil {
		return "", err
	}
	prompt, ok := set[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}
	return prompt, nil
}

// Format replaces {{.Key}} placeholders with values from data in a single pass,
// so placeholder text inside a value is left as is.
func Format(template string, data map[string]string) string {
	keys := Set(data).Keys()
	pairs := make([]string, 0, len(keys)*2)
	for _, key := range keys {
		pairs = append(pairs, "{{."+key+"}}", data[key])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// RoadmapPrompts is the instruction pair sent with every generation
type RoadmapPrompts struct {
	System string
	// User carries the {{.Role}} and {{.Stack}} placeholders
	User string
}

// Roadmap loads the roadmap instructions and checks the user template
// still carries both request placeholders.
func Roadmap() (RoadmapPrompts, error) {
	system, err := Get(RoadmapFile, RoadmapSystemKey)
	if err != nil {
		return RoadmapPrompts{}, err
	}
	user, err := Get(RoadmapFile, RoadmapUserKey)
	if err != nil {
		return RoadmapPrompts{}, err
	}
	for _, placeholder := range []string{"{{.Role}}", "{{.Stack}}"} {
		if !strings.Contains(user, placeholder) {
			return RoadmapPrompts{}, fmt.Errorf("prompt %s is missing %s", RoadmapUserKey, placeholder)
		}
	}
	return RoadmapPrompts{System: system, User: user}, nil
}

// UserFor renders the user instruction for one request
func (p RoadmapPrompts) UserFor(role, stack string) string {
	return Format(p.User, map[string]string{"Role": role, "Stack": stack})
}
