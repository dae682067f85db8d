package main

import (
	"log"

	"github.com/m3rciful/quotebot/bot/app"
	corecmd "github.com/m3rciful/quotebot/core/cmd"
)

func main() {
	if err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		EnvFiles:          []string{".env"},
		LoadConfig:        app.LoadConfig,
		Bootstrap:         app.Bootstrap,
	}); err != nil {
		log.Fatal(err)
	}
}
