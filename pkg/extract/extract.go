// Package extract scans a build configuration file for named groups of
// file references.
//
// A group opens on a directive line such as `set(FOO_HEADERS` or
// `add_executable(tool`. Every following line is searched for references
// ending in the requested extension until a line containing `)` closes the
// group. The directive line itself only names the group; references on it
// are not collected.
package extract

import (
	"bufio"
	"bytes"
	"io"
	"io/fs"
	"regexp"
	"strings"

	"github.com/arthur-debert/mkincludes/pkg/errors"
	"github.com/arthur-debert/mkincludes/pkg/logging"
	"github.com/arthur-debert/mkincludes/pkg/types"
)

// DefaultKeywords are the directives that open a group.
var DefaultKeywords = []string{"set", "add_executable"}

// space is the whitespace class used by the patterns. Besides ASCII
// whitespace it covers vertical tab, the \x1c-\x1f separators, NEL and every
// Unicode space separator.
const space = `\s\v\x1c-\x1f\x{85}\p{Z}`

// Extractor recognizes group directives for a fixed keyword set.
type Extractor struct {
	directive *regexp.Regexp
}

// New builds an Extractor for the given directive keywords. Keywords match
// case-insensitively.
func New(keywords []string) (*Extractor, error) {
	if len(keywords) == 0 {
		return nil, errors.New(errors.ErrInvalidInput, "at least one directive keyword is required")
	}
	quoted := make([]string, len(keywords))
	for i, kw := range keywords {
		if kw == "" {
			return nil, errors.New(errors.ErrInvalidInput, "directive keywords must not be empty")
		}
		quoted[i] = regexp.QuoteMeta(kw)
	}
	directive, err := regexp.Compile(`(?i)^[` + space + `]*(` + strings.Join(quoted, "|") + `)[` + space + `]*\([` + space + `]*([\p{L}\p{N}_-]+)`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidInput, "invalid directive keywords")
	}
	return &Extractor{directive: directive}, nil
}

// Default returns an Extractor for DefaultKeywords.
func Default() *Extractor {
	e, err := New(DefaultKeywords)
	if err != nil {
		panic(err)
	}
	return e
}

// ReferencePattern matches one reference with the given extension: a run of
// characters that are not whitespace, parentheses or quotes, followed by a
// literal dot and the extension. An empty extension matches any run ending
// in a dot.
func ReferencePattern(ext string) *regexp.Regexp {
	return regexp.MustCompile(`[^` + space + `()"']+\.` + regexp.QuoteMeta(ext))
}

// Extract reads path and collects references ending in ext by group.
//
// When path does not name an existing file the result is an empty Groups
// together with an ErrFileNotFound error, which callers may treat as
// non-fatal.
func (e *Extractor) Extract(fsys types.FS, path, ext string) (*types.Groups, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.NewGroups(), errors.Wrapf(err, errors.ErrFileNotFound, "File not found: %s", path).
				WithDetail("path", path)
		}
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot stat %s", path)
	}
	if !info.Mode().IsRegular() {
		return types.NewGroups(), errors.Newf(errors.ErrFileNotFound, "File not found: %s", path).
			WithDetail("path", path)
	}

	content, err := fsys.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot read %s", path)
	}

	groups, err := e.Scan(bytes.NewReader(content), ext)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot scan %s", path)
	}
	return groups, nil
}

// Scan collects references ending in ext from r, line by line.
func (e *Extractor) Scan(r io.Reader, ext string) (*types.Groups, error) {
	logger := logging.GetLogger("extract")
	refPattern := ReferencePattern(ext)
	groups := types.NewGroups()

	reader := bufio.NewReader(r)

	current := ""
	lineNo := 0
	for {
		line, readErr := reader.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return nil, readErr
		}
		if line == "" && readErr == io.EOF {
			break
		}
		lineNo++
		line = strings.TrimRight(line, "\r\n")

		if m := e.directive.FindStringSubmatch(line); m != nil {
			current = m[2]
			logger.Debug().Int("line", lineNo).Str("keyword", m[1]).Str("group", current).Msg("Group opened")
		} else if current != "" {
			current = scanLine(groups, current, line, lineNo, refPattern)
		}
		if readErr == io.EOF {
			break
		}
	}
	return groups, nil
}

// scanLine adds the references on line to group and returns the group that
// stays open afterwards.
func scanLine(groups *types.Groups, current, line string, lineNo int, refPattern *regexp.Regexp) string {
	logger := logging.GetLogger("extract")

	if refs := refPattern.FindAllString(line, -1); len(refs) > 0 {
		groups.Add(current, refs...)
		logger.Trace().Int("line", lineNo).Strs("refs", refs).Str("group", current).Msg("References matched")
	}
	if strings.Contains(line, ")") {
		logger.Debug().Int("line", lineNo).Str("group", current).Msg("Group closed")
		return ""
	}
	return current
}

// Extract runs the default extractor.
func Extract(fsys types.FS, path, ext string) (*types.Groups, error) {
	return Default().Extract(fsys, path, ext)
}
