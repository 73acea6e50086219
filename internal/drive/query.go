package drive

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/vaultdrive/vaultdrive/internal/types"
)

// Properties is the closed set of app properties the engine stamps on
// every object it creates. Path is the join key between local and
// remote state; Tag marks the sync root and configuration objects.
type Properties struct {
	Path string
	Tag  types.Tag
}

// AppProperties renders the properties for the Drive API.
func (p Properties) AppProperties() map[string]string {
	m := make(map[string]string)
	if p.Path != "" {
		m[types.PropPath] = p.Path
	}
	if p.Tag != types.TagNone {
		m[types.PropTag] = string(p.Tag)
	}
	return m
}

// Match is a structured predicate over remote objects. All set fields
// are AND-combined within one match; a match list is OR-combined by
// Search. This is the only way the engine discovers remote objects.
type Match struct {
	Name          string
	MimeType      string
	InParent      string
	Starred       bool
	FullText      string
	Path          string // app property equality on "path"
	Tag           types.Tag
	ModifiedAfter time.Time
}

func (m Match) compile() string {
	var clauses []string
	if m.Name != "" {
		clauses = append(clauses, fmt.Sprintf("name = '%s'", escapeQuery(m.Name)))
	}
	if m.MimeType != "" {
		clauses = append(clauses, fmt.Sprintf("mimeType = '%s'", escapeQuery(m.MimeType)))
	}
	if m.InParent != "" {
		clauses = append(clauses, fmt.Sprintf("'%s' in parents", escapeQuery(m.InParent)))
	}
	if m.Starred {
		clauses = append(clauses, "starred = true")
	}
	if m.FullText != "" {
		clauses = append(clauses, fmt.Sprintf("fullText contains '%s'", escapeQuery(m.FullText)))
	}
	if m.Path != "" {
		clauses = append(clauses, fmt.Sprintf("appProperties has { key='%s' and value='%s' }", types.PropPath, escapeQuery(m.Path)))
	}
	if m.Tag != types.TagNone {
		clauses = append(clauses, fmt.Sprintf("appProperties has { key='%s' and value='%s' }", types.PropTag, escapeQuery(string(m.Tag))))
	}
	if !m.ModifiedAfter.IsZero() {
		clauses = append(clauses, fmt.Sprintf("modifiedTime > '%s'", m.ModifiedAfter.UTC().Format(time.RFC3339)))
	}
	return strings.Join(clauses, " and ")
}

// CompileQuery renders a match list as a Drive query string: matches
// OR-combined, the whole AND-combined with "trashed = false".
func CompileQuery(matches []Match) string {
	var parts []string
	for _, m := range matches {
		if clause := m.compile(); clause != "" {
			parts = append(parts, "("+clause+")")
		}
	}
	if len(parts) == 0 {
		return "trashed = false"
	}
	return "trashed = false and (" + strings.Join(parts, " or ") + ")"
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

func hasFullText(matches []Match) bool {
	for _, m := range matches {
		if m.FullText != "" {
			return true
		}
	}
	return false
}

// defaultFields covers everything the engine reads off a remote object.
var defaultFields = []string{"id", "name", "mimeType", "description", "starred", "appProperties", "modifiedTime"}

// Search lists every object matching the OR-combined matches, following
// continuation tokens until exhausted; the caller never observes
// pagination. Results are name-ordered unless a full-text match is
// present (relevance ranking takes precedence). Objects tagged as the
// sync root container itself are filtered out.
func (c *Client) Search(ctx context.Context, reqCtx *types.RequestContext, matches []Match, include []string) ([]types.DriveObject, error) {
	return c.search(ctx, reqCtx, matches, include, false)
}

// SearchWithRoot is Search without the root-container filter.
func (c *Client) SearchWithRoot(ctx context.Context, reqCtx *types.RequestContext, matches []Match, include []string) ([]types.DriveObject, error) {
	return c.search(ctx, reqCtx, matches, include, true)
}

func (c *Client) search(ctx context.Context, reqCtx *types.RequestContext, matches []Match, include []string, includeRoot bool) ([]types.DriveObject, error) {
	if len(include) == 0 {
		include = defaultFields
	}
	fields := "nextPageToken,files(" + strings.Join(include, ",") + ")"

	call := c.service.Files.List().
		Q(CompileQuery(matches)).
		Spaces("drive").
		PageSize(c.pageSize).
		Fields(googleapi.Field(fields))
	if !hasFullText(matches) {
		call = call.OrderBy("name")
	}

	var objects []types.DriveObject
	pageToken := ""
	for {
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		list, err := ExecuteWithRetry(ctx, c, reqCtx, func() (*drive.FileList, error) {
			return call.Do()
		})
		if err != nil {
			return nil, err
		}
		for _, f := range list.Files {
			obj := convertObject(f)
			if !includeRoot && obj.Tag == types.TagRoot {
				continue
			}
			objects = append(objects, obj)
		}
		if list.NextPageToken == "" {
			break
		}
		pageToken = list.NextPageToken
	}
	return objects, nil
}

// FindRoot locates the remote sync root container, creating it when
// absent. The root carries the root tag and no path property.
func (c *Client) FindRoot(ctx context.Context, reqCtx *types.RequestContext, name string) (string, error) {
	roots, err := c.SearchWithRoot(ctx, reqCtx, []Match{{Tag: types.TagRoot}}, nil)
	if err != nil {
		return "", err
	}
	for _, obj := range roots {
		if obj.Tag == types.TagRoot {
			return obj.ID, nil
		}
	}

	metadata := &drive.File{
		Name:          name,
		MimeType:      types.MimeTypeFolder,
		AppProperties: Properties{Tag: types.TagRoot}.AppProperties(),
	}
	created, err := ExecuteWithRetry(ctx, c, reqCtx, func() (*drive.File, error) {
		return c.service.Files.Create(metadata).Fields("id").Do()
	})
	if err != nil {
		return "", err
	}
	return created.Id, nil
}

func convertObject(f *drive.File) types.DriveObject {
	obj := types.DriveObject{
		ID:           f.Id,
		Name:         f.Name,
		MimeType:     f.MimeType,
		Description:  f.Description,
		Starred:      f.Starred,
		ModifiedTime: f.ModifiedTime,
	}
	if f.AppProperties != nil {
		obj.Path = f.AppProperties[types.PropPath]
		obj.Tag = types.Tag(f.AppProperties[types.PropTag])
	}
	return obj
}
