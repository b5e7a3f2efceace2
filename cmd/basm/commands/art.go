package commands

import (
	"fmt"
	"sort"

	"basm/internal/asciiart"
)

// ArtCommand implements `basm art list` and `basm art show <name>`.
func ArtCommand(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: basm art list|show <name>")
	}
	switch args[0] {
	case "list":
		return artList()
	case "show":
		if len(args) < 2 {
			return fmt.Errorf("usage: basm art show <name>")
		}
		return artShow(args[1])
	default:
		return fmt.Errorf("unrecognized art subcommand %q, want list or show", args[0])
	}
}

func artList() error {
	names := asciiart.Names()
	sort.Strings(names)
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func artShow(name string) error {
	tmpl, err := asciiart.Load(name)
	if err != nil {
		return err
	}
	fmt.Print(tmpl)
	return nil
}
