// SPDX-License-Identifier: MPL-2.0

// soa-cli is a scaffolding CLI whose commands are npm packages installed
// and cached on demand.
package main

import cmd "github.com/SOALIN228/soa-cli/cmd/soa-cli"

func main() {
	cmd.Execute()
}
