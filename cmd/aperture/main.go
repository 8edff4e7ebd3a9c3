// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

// Package main is the entry point for the aperture gateway.
package main

import (
	"os"

	"github.com/aperturehq/aperture/cmd/aperture/app"
	"github.com/aperturehq/aperture/pkg/logger"
)

func main() {
	// Initialize the logger
	logger.Initialize()

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
