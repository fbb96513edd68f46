package imageprovider

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/wallrot/wallrot/internal/errors"
)

// Sentinel errors. Returned errors wrap these, so use errors.Is.
var (
	// ErrInvalidReference means no Drive file id could be extracted from a remote reference.
	ErrInvalidReference = errors.NewStd("invalid remote reference")
	// ErrTimeout means a load did not finish within its deadline.
	ErrTimeout = errors.NewStd("image load timed out")
	// ErrLoadError means a source answered but did not yield a usable image.
	ErrLoadError = errors.NewStd("image load failed")
	// ErrAllSourcesFailed means every candidate for an image failed.
	ErrAllSourcesFailed = errors.NewStd("all image sources failed")
)

// loadFailure wraps cause in the sentinel that matches it.
func loadFailure(ctx context.Context, op, target string, timeout time.Duration, cause error) error {
	sentinel := ErrLoadError
	category := errors.CategoryImageLoad
	switch {
	case isTimeout(ctx, cause):
		sentinel = ErrTimeout
		category = errors.CategoryTimeout
	case errors.Is(cause, context.Canceled):
		return errors.New(cause).
			Component("imageprovider").
			Category(errors.CategoryCancellation).
			Context("operation", op).
			NetworkContext(target, timeout).
			Build()
	}

	return errors.New(fmt.Errorf("%w: %w", sentinel, cause)).
		Component("imageprovider").
		Category(category).
		Context("operation", op).
		NetworkContext(target, timeout).
		Build()
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
