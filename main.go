package main

import (
	"github.com/tanpawarit/shoptalk-assistant/cmd"
	_ "github.com/tanpawarit/shoptalk-assistant/pkg/logger/autoload"
)

func main() {
	cmd.Execute()
}
