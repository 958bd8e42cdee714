// Package locale resolves the text of a grid from its locale tag and user overrides.
package locale

import (
	"embed"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// DefaultTag is used when no tag is given and when the tag matches no bundled table.
const DefaultTag = "en-US"

var (
	ErrInvalidTag         = errors.New("invalid locale tag")
	ErrUnknownOverrideKey = errors.New("unknown locale text key")
)

//go:embed tables/*.yaml
var tablesFS embed.FS

type bundle struct {
	tags    []language.Tag
	tables  []map[string]string
	matcher language.Matcher
	// keys maps the lowercased keys to their canonical spelling.
	keys map[string]string
}

var (
	loadOnce sync.Once
	loaded   *bundle
	loadErr  error
)

func load() (*bundle, error) {
	loadOnce.Do(func() {
		loaded, loadErr = readTables()
	})

	return loaded, loadErr
}

func readTables() (*bundle, error) {
	files, err := tablesFS.ReadDir("tables")
	if err != nil {
		return nil, errors.Wrap(err, "unable to list locale tables")
	}

	b := &bundle{keys: make(map[string]string)}
	// the default table comes first so that the matcher falls back to it
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, strings.TrimSuffix(f.Name(), path.Ext(f.Name())))
	}
	sort.Slice(names, func(i, j int) bool {
		if (names[i] == DefaultTag) != (names[j] == DefaultTag) {
			return names[i] == DefaultTag
		}
		return names[i] < names[j]
	})

	for _, name := range names {
		tag, err := language.Parse(name)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to parse locale table name %q", name)
		}

		raw, err := tablesFS.ReadFile(path.Join("tables", name+".yaml"))
		if err != nil {
			return nil, errors.Wrapf(err, "unable to read locale table %s", name)
		}
		table := make(map[string]string)
		if err := yaml.Unmarshal(raw, &table); err != nil {
			return nil, errors.Wrapf(err, "unable to decode locale table %s", name)
		}

		for key := range table {
			b.keys[strings.ToLower(key)] = key
		}
		b.tags = append(b.tags, tag)
		b.tables = append(b.tables, table)
	}

	if len(b.tags) == 0 {
		return nil, errors.New("no locale table bundled")
	}
	b.matcher = language.NewMatcher(b.tags)

	return b, nil
}

// Tags returns the tags of the bundled tables, the default one first.
func Tags() ([]string, error) {
	b, err := load()
	if err != nil {
		return nil, err
	}

	res := make([]string, len(b.tags))
	for i, tag := range b.tags {
		res[i] = tag.String()
	}

	return res, nil
}

// Text is the resolved text of a grid.
type Text struct {
	// Tag is the bundled table the text was resolved from.
	Tag language.Tag
	// Exact is false when the requested tag only matched approximately or not at all.
	Exact   bool
	entries map[string]string
}

// Resolve picks the bundled table closest to tag and applies overrides on top of it.
// Override keys are matched case-insensitively and must exist in the bundled tables.
func Resolve(tag string, overrides map[string]string) (*Text, error) {
	b, err := load()
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(tag) == "" {
		tag = DefaultTag
	}
	requested, err := language.Parse(tag)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidTag, "%q: %v", tag, err)
	}

	_, idx, confidence := b.matcher.Match(requested)

	entries := make(map[string]string, len(b.tables[idx])+len(overrides))
	for key, value := range b.tables[idx] {
		entries[key] = value
	}

	for key, value := range overrides {
		canonical, ok := b.keys[strings.ToLower(key)]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownOverrideKey, "%q", key)
		}
		entries[canonical] = value
	}

	return &Text{
		Tag:     b.tags[idx],
		Exact:   confidence == language.Exact,
		entries: entries,
	}, nil
}

// Get returns the text for key, or key itself when it is unknown.
func (t *Text) Get(key string) string {
	if t == nil {
		return key
	}
	if value, ok := t.entries[key]; ok {
		return value
	}

	return key
}

// Entries returns a copy of every resolved entry.
func (t *Text) Entries() map[string]string {
	res := make(map[string]string, len(t.entries))
	for key, value := range t.entries {
		res[key] = value
	}

	return res
}
