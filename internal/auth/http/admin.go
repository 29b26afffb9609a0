package http

import (
	"net/http"

	"github.com/aussiebroadwan/inkwell/internal/auth/domain"
	"github.com/aussiebroadwan/inkwell/internal/auth/service"
	"github.com/aussiebroadwan/inkwell/pkg/authsdk"
	"github.com/aussiebroadwan/inkwell/pkg/httpx"
)

// AdminHandler serves account moderation. Routes are mounted behind
// RequireRole("admin"); the service checks the actor again against the
// stored role.
type AdminHandler struct {
	Auth *service.AuthService
}

// HandleSetStatus handles PUT /v1/admin/users/{id}/status
//
//	@Summary		Change a user's status
//	@Description	Deactivating or banning revokes nothing already issued, but every later
//	@Description	token check fails for the account.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Accept			json
//	@Param			id		path	string						true	"User id"
//	@Param			request	body	authsdk.SetStatusRequest	true	"New status"
//	@Success		204
//	@Failure		403	{object}	authsdk.ErrorResponse	"forbidden"
//	@Failure		404	{object}	authsdk.ErrorResponse	"user_not_found"
//	@Failure		422	{object}	authsdk.ErrorResponse	"Validation failed"
//	@Router			/v1/admin/users/{id}/status [put].
func (h *AdminHandler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	var req authsdk.SetStatusRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	actor := httpx.UserIDFromContext(r.Context())
	if err := h.Auth.SetStatus(r.Context(), actor, r.PathValue("id"), domain.UserStatus(req.Status)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSetRole handles PUT /v1/admin/users/{id}/role
//
//	@Summary		Change a user's role
//	@Description	The new role shows up in access tokens issued afterwards.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Accept			json
//	@Param			id		path	string					true	"User id"
//	@Param			request	body	authsdk.SetRoleRequest	true	"New role"
//	@Success		204
//	@Failure		403	{object}	authsdk.ErrorResponse	"forbidden"
//	@Failure		404	{object}	authsdk.ErrorResponse	"user_not_found"
//	@Failure		422	{object}	authsdk.ErrorResponse	"Validation failed"
//	@Router			/v1/admin/users/{id}/role [put].
func (h *AdminHandler) HandleSetRole(w http.ResponseWriter, r *http.Request) {
	var req authsdk.SetRoleRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	actor := httpx.UserIDFromContext(r.Context())
	if err := h.Auth.SetRole(r.Context(), actor, r.PathValue("id"), domain.Role(req.Role)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
