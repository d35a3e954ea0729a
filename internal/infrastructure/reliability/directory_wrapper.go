package reliability

import (
	"context"
	"errors"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
	"streamgate/pkg/circuitbreaker"
	"streamgate/pkg/retry"

	"go.uber.org/zap"
)

// DirectoryWrapper wraps a CameraDirectory with retry logic and a
// circuit breaker, so a flapping camera service slows session creation
// instead of stalling it.
type DirectoryWrapper struct {
	directory ports.CameraDirectory
	log       *zap.SugaredLogger

	retryConfig    retry.Config
	circuitBreaker *circuitbreaker.CircuitBreaker
}

func NewDirectoryWrapper(
	directory ports.CameraDirectory,
	retryConfig retry.Config,
	cbConfig circuitbreaker.Config,
	log *zap.SugaredLogger,
) *DirectoryWrapper {
	// A missing camera is an answer, not a failure. It must neither
	// trip the breaker nor burn retry attempts.
	retryConfig.NonRetryable = append(retryConfig.NonRetryable,
		domain.ErrCameraNotFound, circuitbreaker.ErrOpen)
	cbConfig.IsFailure = func(err error) bool {
		return !errors.Is(err, domain.ErrCameraNotFound)
	}

	wrapper := &DirectoryWrapper{
		directory:      directory,
		log:            log,
		retryConfig:    retryConfig,
		circuitBreaker: circuitbreaker.New(cbConfig),
	}

	wrapper.circuitBreaker.OnStateChange(func(from, to circuitbreaker.State) {
		log.Infow("camera directory circuit breaker state changed",
			"from", from.String(),
			"to", to.String(),
		)
	})

	return wrapper
}

func (w *DirectoryWrapper) Lookup(ctx context.Context, cameraID domain.CameraID, companyID domain.CompanyID) (*domain.Camera, error) {
	if !w.retryConfig.Enabled {
		return w.directory.Lookup(ctx, cameraID, companyID)
	}

	return retry.RetryWithResult(ctx, w.retryConfig, func() (*domain.Camera, error) {
		res, err := w.circuitBreaker.ExecuteWithResult(ctx, func() (interface{}, error) {
			return w.directory.Lookup(ctx, cameraID, companyID)
		})
		if err != nil {
			return nil, err
		}
		return res.(*domain.Camera), nil
	})
}

// BreakerState exposes the breaker for the readiness probe.
func (w *DirectoryWrapper) BreakerState() circuitbreaker.State {
	return w.circuitBreaker.GetStats().State
}
