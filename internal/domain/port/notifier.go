package port

import "context"

type FailureNotifier interface {
	NotifyFailure(ctx context.Context, videoID string, fileName string, errorMsg string) error
}
