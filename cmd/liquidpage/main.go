// liquidpage renders one content document of a static site.
package main

import "github.com/v3gtb/liquidpage/internal/cli"

func main() {
	cli.Execute()
}
