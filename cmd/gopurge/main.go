// Command gopurge deletes records whose identifier matches a pattern,
// with dry-run by default, index checks and post-delete verification.
package main

import "github.com/dbsmedya/gopurge/cmd/gopurge/cmd"

func main() {
	cmd.Execute()
}
