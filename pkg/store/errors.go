// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

package store

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists is returned when inserting a record whose key is taken.
	ErrAlreadyExists = errors.New("record already exists")

	// ErrBackendIDSet is returned when attempting to overwrite a session's
	// backend session id with a different value.
	ErrBackendIDSet = errors.New("backend session id already set")

	// ErrNotResumable is returned when reviving a session that was ended
	// deliberately rather than by a gateway restart.
	ErrNotResumable = errors.New("session is not resumable")
)
