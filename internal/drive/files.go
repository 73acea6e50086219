package drive

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/http"
	"path"

	"google.golang.org/api/drive/v3"

	"github.com/vaultdrive/vaultdrive/internal/types"
)

// CreateFolder creates a remote folder and returns its id and assigned
// modified time. The path property is stamped so the folder can be
// re-discovered by path.
func (c *Client) CreateFolder(ctx context.Context, reqCtx *types.RequestContext, name, parentID string, props Properties) (*types.DriveObject, error) {
	metadata := &drive.File{
		Name:          name,
		MimeType:      types.MimeTypeFolder,
		AppProperties: props.AppProperties(),
	}
	if parentID != "" {
		metadata.Parents = []string{parentID}
	}

	result, err := ExecuteWithRetry(ctx, c, reqCtx, func() (*drive.File, error) {
		return c.service.Files.Create(metadata).Fields("id,modifiedTime").Do()
	})
	if err != nil {
		return nil, err
	}
	obj := convertObject(result)
	return &obj, nil
}

// UploadFile creates a remote file with the given content.
func (c *Client) UploadFile(ctx context.Context, reqCtx *types.RequestContext, content []byte, name, parentID string, props Properties) (*types.DriveObject, error) {
	metadata := &drive.File{
		Name:          name,
		MimeType:      detectMimeType(name),
		AppProperties: props.AppProperties(),
	}
	if parentID != "" {
		metadata.Parents = []string{parentID}
	}

	result, err := ExecuteWithRetry(ctx, c, reqCtx, func() (*drive.File, error) {
		return c.service.Files.Create(metadata).
			Media(bytes.NewReader(content)).
			Fields("id,modifiedTime").
			Do()
	})
	if err != nil {
		return nil, err
	}
	obj := convertObject(result)
	return &obj, nil
}

// UpdateFileContent replaces a file's content wholesale (no diffing)
// and refreshes its properties.
func (c *Client) UpdateFileContent(ctx context.Context, reqCtx *types.RequestContext, id string, content []byte, props Properties) (*types.DriveObject, error) {
	metadata := &drive.File{
		AppProperties: props.AppProperties(),
	}

	result, err := ExecuteWithRetry(ctx, c, reqCtx, func() (*drive.File, error) {
		return c.service.Files.Update(id, metadata).
			Media(bytes.NewReader(content)).
			Fields("id,modifiedTime").
			Do()
	})
	if err != nil {
		return nil, err
	}
	obj := convertObject(result)
	return &obj, nil
}

// UpdateMetadata rewrites an object's properties without touching its
// content.
func (c *Client) UpdateMetadata(ctx context.Context, reqCtx *types.RequestContext, id string, props Properties) (*types.DriveObject, error) {
	metadata := &drive.File{
		AppProperties: props.AppProperties(),
	}

	result, err := ExecuteWithRetry(ctx, c, reqCtx, func() (*drive.File, error) {
		return c.service.Files.Update(id, metadata).Fields("id,modifiedTime").Do()
	})
	if err != nil {
		return nil, err
	}
	obj := convertObject(result)
	return &obj, nil
}

// GetContent downloads a file's bytes.
func (c *Client) GetContent(ctx context.Context, reqCtx *types.RequestContext, id string) ([]byte, error) {
	resp, err := ExecuteWithRetry(ctx, c, reqCtx, func() (*http.Response, error) {
		return c.service.Files.Get(id).Download()
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// GetMetadata fetches a single object's metadata.
func (c *Client) GetMetadata(ctx context.Context, reqCtx *types.RequestContext, id string) (*types.DriveObject, error) {
	result, err := ExecuteWithRetry(ctx, c, reqCtx, func() (*drive.File, error) {
		return c.service.Files.Get(id).
			Fields("id,name,mimeType,description,starred,appProperties,modifiedTime").
			Do()
	})
	if err != nil {
		return nil, err
	}
	obj := convertObject(result)
	return &obj, nil
}

func detectMimeType(name string) string {
	if mt := mime.TypeByExtension(path.Ext(name)); mt != "" {
		return mt
	}
	return "application/octet-stream"
}
