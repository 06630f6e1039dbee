// SPDX-License-Identifier: MPL-2.0

// Package config loads the soa-cli configuration and resolves the
// environment the CLI runs in.
//
// Settings come, in increasing priority, from built-in defaults, the CUE
// file <home>/config.cue (validated against config_schema.cue), SOA_CLI_*
// variables in ~/.env, and SOA_CLI_* process environment variables. The
// soa-cli home defaults to ~/.soa-cli-dev and is moved with SOA_CLI_HOME.
package config
