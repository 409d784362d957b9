package main

import (
	"fmt"

	wharfreleasepublish "github.com/iver-wharf/wharf-release-publish"
)

func main() {
	version, err := wharfreleasepublish.GetVersion()
	if err != nil {
		fmt.Println("Failed to load version:", err)
	}
	execute(version)
}
