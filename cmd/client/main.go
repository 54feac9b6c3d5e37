// Command scenesync is the scene sync client.
package main

import "github.com/dmitrijs2005/scenesync/internal/client/cli"

func main() {
	cli.Execute()
}
