package ports

import (
	"context"
	"time"

	"streamgate/internal/core/domain"
)

type SessionManager interface {
	GetOrCreate(ctx context.Context, cameraID domain.CameraID, companyID domain.CompanyID) (*domain.StreamSession, error)
	WaitReady(ctx context.Context, session *domain.StreamSession) error
	Touch(cameraID domain.CameraID)
	Stop(ctx context.Context, cameraID domain.CameraID) error
	EvictIdleBefore(ctx context.Context, now time.Time) int
	Session(cameraID domain.CameraID) (domain.SessionSnapshot, error)
	Sessions() []domain.SessionSnapshot
	Shutdown(ctx context.Context)
}

type TokenService interface {
	Issue(cameraID domain.CameraID, companyID domain.CompanyID) (string, *domain.StreamToken, error)
	Validate(signed string, cameraID domain.CameraID) (*domain.StreamToken, error)
}

// Transcoder launches one supervised subprocess per session. onExit is
// invoked from the monitor goroutine exactly once, after the process
// has exited.
type Transcoder interface {
	Start(ctx context.Context, session *domain.StreamSession, onExit func(code int)) (domain.ProcessHandle, error)
}
