// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers shared by package tests: working
// directory and environment changes with automatic restore, descriptor
// trees on disk, and in-memory build graph fixtures.
package testutil
