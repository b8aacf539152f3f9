package usecase

import (
	authdomain "github.com/mdonangelo-tech/chiefos-backend/internal/auth/domain"
	authdto "github.com/mdonangelo-tech/chiefos-backend/internal/auth/dto"
)

type AuthUsecase interface {
	Login(req *authdto.LoginRequest) (*authdto.TokenResponse, error)
	Register(req *authdto.RegisterRequest) (*authdto.TokenResponse, error)
	RefreshToken(refreshToken string) (*authdto.TokenResponse, error)
	Logout(refreshToken string) error
	ValidateToken(tokenString string) (*authdomain.User, error)
}
