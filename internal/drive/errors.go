package drive

import (
	"google.golang.org/api/googleapi"

	"github.com/vaultdrive/vaultdrive/internal/types"
	"github.com/vaultdrive/vaultdrive/internal/utils"
)

// classifyError converts Drive API errors to stable CLI errors.
func classifyError(err error, reqCtx *types.RequestContext) error {
	apiErr, ok := err.(*googleapi.Error)
	if !ok {
		return utils.NewCLIError(utils.ErrCodeNetworkError, err.Error()).
			WithPhase(reqCtx.Phase).
			Build()
	}

	var code string
	switch apiErr.Code {
	case 400:
		code = utils.ErrCodeInvalidArgument
	case 401:
		code = utils.ErrCodeAuthExpired
	case 403:
		code = utils.ErrCodePermissionDenied
		for _, e := range apiErr.Errors {
			switch e.Reason {
			case "storageQuotaExceeded":
				code = utils.ErrCodeQuotaExceeded
			case "userRateLimitExceeded", "rateLimitExceeded", "dailyLimitExceeded":
				code = utils.ErrCodeRateLimited
			}
		}
	case 404:
		code = utils.ErrCodeFileNotFound
	case 429:
		code = utils.ErrCodeRateLimited
	case 500, 502, 503, 504:
		code = utils.ErrCodeNetworkError
	default:
		code = utils.ErrCodeUnknown
	}

	return utils.NewCLIError(code, apiErr.Message).
		WithPhase(reqCtx.Phase).
		Build()
}
