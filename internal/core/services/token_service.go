package services

import (
	"errors"
	"fmt"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
	"streamgate/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the playback token claim set. The token is a bearer
// credential scoped to exactly one camera of one company; it carries no
// user identity.
type Claims struct {
	CameraID  string `json:"camera_id"`
	CompanyID string `json:"company_id"`
	jwt.RegisteredClaims
}

type tokenService struct {
	secret []byte
	ttl    time.Duration
	clock  Clock
}

func NewTokenService(secret string, ttl time.Duration, clock Clock) ports.TokenService {
	return &tokenService{
		secret: []byte(secret),
		ttl:    ttl,
		clock:  clock,
	}
}

func (s *tokenService) Issue(cameraID domain.CameraID, companyID domain.CompanyID) (string, *domain.StreamToken, error) {
	now := s.clock.Now()
	tokenID := utils.GenerateTokenID()

	claims := &Claims{
		CameraID:  string(cameraID),
		CompanyID: string(companyID),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign stream token: %w", err)
	}

	return signed, &domain.StreamToken{
		TokenID:   tokenID,
		CameraID:  cameraID,
		CompanyID: companyID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}, nil
}

// Validate checks the signature, expiry and camera scope of a signed
// token. The company scope travels inside the token and is enforced
// downstream: the directory lookup and the session table both match on
// the token's CompanyID.
func (s *tokenService) Validate(signed string, cameraID domain.CameraID) (*domain.StreamToken, error) {
	token, err := jwt.ParseWithClaims(signed, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrTokenInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock.Now), jwt.WithExpirationRequired())

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: expired", domain.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, domain.ErrTokenInvalid
	}
	if claims.CameraID != string(cameraID) {
		return nil, fmt.Errorf("%w: camera scope mismatch", domain.ErrTokenInvalid)
	}

	decoded := &domain.StreamToken{
		TokenID:   claims.ID,
		CameraID:  domain.CameraID(claims.CameraID),
		CompanyID: domain.CompanyID(claims.CompanyID),
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		decoded.IssuedAt = claims.IssuedAt.Time
	}
	return decoded, nil
}
