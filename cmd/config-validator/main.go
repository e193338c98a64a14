package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/Omega359/gelfbuf"
	"github.com/Omega359/gelfbuf/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.VersionInfo())
		return
	}

	// Get config path from arguments
	if len(flag.Args()) < 1 {
		fmt.Println("Error: Config file path is required")
		fmt.Println("Usage: config-validator <config-file>")
		os.Exit(1)
	}
	configPath := flag.Args()[0]

	// Building the appenders is the validation: every section is decoded,
	// checked and handed to its builder. No logger is installed.
	cfg, err := gelfbuf.LoadConfig(configPath, gelfbuf.DefaultDeserializers())
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	names := make([]string, 0, len(cfg.Appenders))
	for name := range cfg.Appenders {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		switch app := cfg.Appenders[name].(type) {
		case *gelfbuf.BufferAppender:
			fmt.Printf("appender '%s': buffer -> %s\n", name, app.Endpoint())
		default:
			fmt.Printf("appender '%s': ok\n", name)
		}
		_ = cfg.Appenders[name].Close()
	}

	fmt.Println("Configuration is valid!")
}
