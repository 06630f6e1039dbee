// SPDX-License-Identifier: MPL-2.0

// Package gitserver talks to the Git hosting services a generated project
// can be pushed to. Server is implemented by the Github and Gitee clients;
// New selects one by Type. Store persists the selected service and access
// token below the soa-cli home.
package gitserver
