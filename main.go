// Copyright © 2021 The Lust authors

package main

import "github.com/ZekeMedley/lust/cmd"

func main() {
	cmd.Execute()
}
