package http

import (
	"github.com/aussiebroadwan/inkwell/internal/auth/domain"
	"github.com/aussiebroadwan/inkwell/internal/auth/identity"
	"github.com/aussiebroadwan/inkwell/pkg/authsdk"
)

func toUser(u domain.User) authsdk.User {
	return authsdk.User{
		ID:               u.ID,
		Email:            u.Email,
		Username:         u.Username,
		Role:             string(u.Role),
		Status:           string(u.Status),
		Verified:         u.Verified,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		HasPassword:      u.HasPassword(),
		OAuthProvider:    u.OAuthProvider,
		TelegramLinked:   u.TelegramLinked(),
		TelegramUsername: u.TelegramUsername,
		MFAEnabled:       u.MFAEnabled(),
		LastLoginAt:      u.LastLoginAt,
		CreatedAt:        u.CreatedAt,
	}
}

func toTokenResponse(s domain.Session) authsdk.TokenResponse {
	return authsdk.TokenResponse{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    s.TokenType,
		ExpiresIn:    int(s.ExpiresIn.Seconds()),
		User:         toUser(s.User),
	}
}

func toTelegramLogin(req authsdk.TelegramAuthRequest) identity.TelegramLogin {
	return identity.TelegramLogin{
		ID:        req.ID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		PhotoURL:  req.PhotoURL,
		AuthDate:  req.AuthDate,
		Hash:      req.Hash,
	}
}
