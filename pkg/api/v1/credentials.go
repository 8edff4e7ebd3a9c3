// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	stderrors "errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/aperturehq/aperture/pkg/api/errors"
	"github.com/aperturehq/aperture/pkg/errors"
	"github.com/aperturehq/aperture/pkg/vault"
)

// CredentialRoutes defines the routes for stored provider credentials.
// The vault is nil when no master key is configured; every endpoint then
// answers 503 so clients can tell "disabled" from "missing".
type CredentialRoutes struct {
	vault *vault.Vault
}

// CredentialsRouter creates a new router for the credential API.
func CredentialsRouter(v *vault.Vault) http.Handler {
	routes := &CredentialRoutes{vault: v}

	r := chi.NewRouter()
	r.Post("/", apierrors.ErrorHandler(routes.createCredential))
	r.Get("/", apierrors.ErrorHandler(routes.listCredentials))
	r.Delete("/{id}", apierrors.ErrorHandler(routes.deleteCredential))
	return r
}

// CreateCredentialRequest is the credential creation payload. The key is
// encrypted at rest and never returned by any endpoint.
type CreateCredentialRequest struct {
	Provider string `json:"provider"`
	Label    string `json:"label,omitempty"`
	APIKey   string `json:"apiKey"`
}

// CredentialResponse is the client view of a stored credential.
type CredentialResponse struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Label    string `json:"label,omitempty"`
}

// CredentialListResponse is the credential listing payload.
type CredentialListResponse struct {
	Credentials []vault.CredentialInfo `json:"credentials"`
	Total       int                    `json:"total"`
}

// createCredential
//
//	@Summary		Store a credential
//	@Description	Encrypt and store a provider API key
//	@Tags			credentials
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateCredentialRequest	true	"Credential to store"
//	@Success		201		{object}	CredentialResponse
//	@Failure		400		{string}	string	"Bad Request"
//	@Failure		503		{string}	string	"Service Unavailable"
//	@Router			/v1/credentials [post]
func (c *CredentialRoutes) createCredential(w http.ResponseWriter, r *http.Request) error {
	if c.vault == nil {
		http.Error(w, "Credential vault is not configured", http.StatusServiceUnavailable)
		return nil
	}

	var req CreateCredentialRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if req.Provider == "" {
		return errors.NewValidationError("provider is required", nil)
	}
	if req.APIKey == "" {
		return errors.NewValidationError("apiKey is required", nil)
	}

	id, err := c.vault.Put(req.Provider, req.Label, req.APIKey)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, CredentialResponse{
		ID:       id,
		Provider: req.Provider,
		Label:    req.Label,
	})
}

// listCredentials
//
//	@Summary		List credentials
//	@Description	List stored credential metadata, never key material
//	@Tags			credentials
//	@Produce		json
//	@Success		200	{object}	CredentialListResponse
//	@Failure		503	{string}	string	"Service Unavailable"
//	@Router			/v1/credentials [get]
func (c *CredentialRoutes) listCredentials(w http.ResponseWriter, _ *http.Request) error {
	if c.vault == nil {
		http.Error(w, "Credential vault is not configured", http.StatusServiceUnavailable)
		return nil
	}

	infos := c.vault.List()
	return writeJSON(w, http.StatusOK, CredentialListResponse{
		Credentials: infos,
		Total:       len(infos),
	})
}

// deleteCredential
//
//	@Summary		Delete a credential
//	@Description	Tombstone a stored credential; the id is never reused
//	@Tags			credentials
//	@Param			id	path	string	true	"Credential ID"
//	@Success		204	{string}	string	"No Content"
//	@Failure		404	{string}	string	"Not Found"
//	@Failure		503	{string}	string	"Service Unavailable"
//	@Router			/v1/credentials/{id} [delete]
func (c *CredentialRoutes) deleteCredential(w http.ResponseWriter, r *http.Request) error {
	if c.vault == nil {
		http.Error(w, "Credential vault is not configured", http.StatusServiceUnavailable)
		return nil
	}

	if err := c.vault.Delete(chi.URLParam(r, "id")); err != nil {
		if stderrors.Is(err, vault.ErrNotFound) {
			http.Error(w, "Credential not found", http.StatusNotFound)
			return nil
		}
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
