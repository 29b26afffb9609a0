package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// SetUserStatus moves another user to active, deactivated or banned.
// Requires the admin role.
func (s *Session) SetUserStatus(ctx context.Context, userID, status string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPut, "/v1/admin/users/"+url.PathEscape(userID)+"/status",
		SetStatusRequest{Status: status})
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusNoContent)
}

// SetUserRole changes another user's role. Requires the admin role.
func (s *Session) SetUserRole(ctx context.Context, userID, role string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPut, "/v1/admin/users/"+url.PathEscape(userID)+"/role",
		SetRoleRequest{Role: role})
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusNoContent)
}
