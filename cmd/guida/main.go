// SPDX-License-Identifier: MIT

// Command guida ingests XMLTV guides from multiple sources and answers
// now/next queries or exports one merged guide document.
package main

import (
	"fmt"
	"os"
)

const usage = `usage: guida <command> [flags]

commands:
  refresh   load all sources into the cache and report guide stats
  now       show what is airing now on a channel
  next      show upcoming programmes for a channel
  merge     export one merged, catalog-scoped XMLTV document
  daemon    run the periodic refresh loop with the HTTP query API
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "refresh":
		return cmdRefresh(rest)
	case "now":
		return cmdNow(rest)
	case "next":
		return cmdNext(rest)
	case "merge":
		return cmdMerge(rest)
	case "daemon":
		return cmdDaemon(rest)
	case "-h", "--help", "help":
		fmt.Print(usage)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}
}
