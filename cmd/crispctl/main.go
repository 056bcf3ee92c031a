// crispctl -- local CLI for building, parsing, and verifying CRISP datagrams.
package main

import (
	"github.com/crispcore/gocrisp/cmd/crispctl/commands"
)

func main() {
	commands.Execute()
}
