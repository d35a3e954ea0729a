package cameras

import (
	"context"

	"streamgate/internal/core/domain"
)

// StaticDirectory serves cameras from a fixed list. Meant for
// development and single-box installs where the camera-management
// service is not deployed.
type StaticDirectory struct {
	cameras map[domain.CameraID]domain.Camera
}

func NewStaticDirectory(cameras []domain.Camera) *StaticDirectory {
	m := make(map[domain.CameraID]domain.Camera, len(cameras))
	for _, cam := range cameras {
		m[cam.ID] = cam
	}
	return &StaticDirectory{cameras: m}
}

func (d *StaticDirectory) Lookup(ctx context.Context, cameraID domain.CameraID, companyID domain.CompanyID) (*domain.Camera, error) {
	cam, ok := d.cameras[cameraID]
	if !ok || cam.CompanyID != companyID {
		return nil, domain.ErrCameraNotFound
	}
	out := cam
	return &out, nil
}
