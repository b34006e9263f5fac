// SPDX-License-Identifier: MPL-2.0

// Package config loads workspace configuration using Viper with CUE as the
// file format.
//
// The file is mkgen.cue in the workspace directory unless a path is given
// explicitly. It is validated against an embedded CUE schema
// (config_schema.cue) before being merged over the defaults, and every key
// can be overridden from the environment with the MKGEN_ prefix, e.g.
// MKGEN_BUILD_ROOT or MKGEN_TOOLCHAIN_CXX.
package config
