// Package config provides configuration management for crossbuild.
//
// Configuration is read by Viper from config.yaml in the working directory
// or the XDG config directory (~/.config/crossbuild/config.yaml). Every key
// can also be overridden through CROSSBUILD_-prefixed environment variables,
// e.g. CROSSBUILD_PATHS_TMP or CROSSBUILD_JOBS.
//
//	version: 1
//	paths:
//	  tmp: /build/tmp
//	  install: "{{ tmp }}/install.{{ platform }}-{{ arch }}"
//	defaults:
//	  platform: android
//	  arch: arm64_v8a
//	jobs: 8
//	overlays:
//	  - ns: env
//	    name: CFLAGS
//	    value: "{{ CFLAGS }} -g"
//
// Overlays are applied after the built-in toolchain table, in file order,
// through the same store operations, so self-extension works as it does for
// the table itself.
//
// # Loading Configuration
//
// Call [Init] once at startup, then [Load]. An explicit path that does not
// exist is an error wrapping errors.ErrNotFound; with no path, a missing file
// falls back to [Default] values.
package config
