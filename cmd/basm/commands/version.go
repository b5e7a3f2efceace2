package commands

import "fmt"

// currentBasmVersion is stamped into newly-initialized basm.mod files
// and printed by `basm version`.
const currentBasmVersion = "v0.1.0"

// VersionCommand implements `basm version`.
func VersionCommand(args []string) error {
	fmt.Println(currentBasmVersion)
	return nil
}
