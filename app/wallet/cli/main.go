// This program provides a small wallet for building transactions and
// querying a node.
package main

import "github.com/ardanlabs/powledger/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
