package sync

import (
	"context"

	"github.com/vaultdrive/vaultdrive/internal/drive"
	"github.com/vaultdrive/vaultdrive/internal/types"
)

// Remote is the slice of the Drive client the engine consumes.
// *drive.Client satisfies it; tests substitute an in-memory fake.
type Remote interface {
	Search(ctx context.Context, reqCtx *types.RequestContext, matches []drive.Match, include []string) ([]types.DriveObject, error)
	CreateFolder(ctx context.Context, reqCtx *types.RequestContext, name, parentID string, props drive.Properties) (*types.DriveObject, error)
	UploadFile(ctx context.Context, reqCtx *types.RequestContext, content []byte, name, parentID string, props drive.Properties) (*types.DriveObject, error)
	UpdateFileContent(ctx context.Context, reqCtx *types.RequestContext, id string, content []byte, props drive.Properties) (*types.DriveObject, error)
	UpdateMetadata(ctx context.Context, reqCtx *types.RequestContext, id string, props drive.Properties) (*types.DriveObject, error)
	DeleteBatch(ctx context.Context, reqCtx *types.RequestContext, ids []string) error
	GetContent(ctx context.Context, reqCtx *types.RequestContext, id string) ([]byte, error)
	GetMetadata(ctx context.Context, reqCtx *types.RequestContext, id string) (*types.DriveObject, error)
}
