package main

import (
	"flag"
	"fmt"
	"os"
	"time"
)

var version = "dev"

func main() {
	// Handle subcommands before flag parsing.
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "init":
			initCmd := flag.NewFlagSet("init", flag.ExitOnError)
			initCmd.Usage = func() {
				fmt.Fprintf(os.Stderr, "Usage: mixbridge init [flags]\n\nWrite a configuration file interactively.\n\nFlags:\n")
				initCmd.PrintDefaults()
			}
			cfgPath := initCmd.String("config", "", "path to configuration file (default: user config dir)")
			force := initCmd.Bool("force", false, "overwrite an existing configuration file")
			_ = initCmd.Parse(os.Args[2:])

			if err := runInit(*cfgPath, *force); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}

			return
		case "ports":
			portsCmd := flag.NewFlagSet("ports", flag.ExitOnError)
			portsCmd.Usage = func() {
				fmt.Fprintf(os.Stderr, "Usage: mixbridge ports\n\nList the available MIDI input and output ports.\n")
			}
			_ = portsCmd.Parse(os.Args[2:])

			runPorts(os.Stdout)

			return
		case "check":
			checkCmd := flag.NewFlagSet("check", flag.ExitOnError)
			checkCmd.Usage = func() {
				fmt.Fprintf(os.Stderr, "Usage: mixbridge check [flags]\n\nConnect to the mixer, sync once and print the mirrored controls.\n\nFlags:\n")
				checkCmd.PrintDefaults()
			}
			cfgPath := checkCmd.String("config", "", "path to configuration file (default: user config dir)")
			envFile := checkCmd.String("env", "", "path to .env file (ignored if missing)")
			timeout := checkCmd.Duration("timeout", 10*time.Second, "give up after this long")
			_ = checkCmd.Parse(os.Args[2:])

			if err := runCheck(*cfgPath, *envFile, *timeout); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}

			return
		case "version":
			fmt.Println(version)
			return
		}
	}

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: mixbridge [flags]\n       mixbridge <command> [flags]\n\nFlags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nCommands:\n  init     Write a configuration file interactively\n  ports    List MIDI ports\n  check    Connect, sync once and print the mirrored controls\n  version  Print the version\n")
	}

	configPath := flag.String("config", "", "path to configuration file (default: user config dir)")
	envFile := flag.String("env", "", "path to .env file (ignored if missing; default: next to the config)")
	flag.Parse()

	if err := run(*configPath, *envFile); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
