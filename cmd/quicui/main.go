// QuicUI CLI entry point
//
// QuicUI manages server-driven screen definitions with an offline-first
// local cache: screens edited locally are stored immediately and pushed to
// the remote in the background with retry and conflict detection.
package main

import "github.com/ikolvi/quicui-core/internal/presentation/cli/commands"

func main() {
	commands.Execute()
}
