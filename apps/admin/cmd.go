package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/karo/core/catalog"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db         *sql.DB
	catalogSvc catalog.ServiceInterface
	validate   *validator.Validate
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [args] - run a goose migration command (up, down, status, ...)")
	fmt.Println("  seedcatalog -file FILE - load subjects and add-ons from a JSON file")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	seedCatalogCmd := flag.NewFlagSet("seedcatalog", flag.ExitOnError)
	seedCatalogFile := seedCatalogCmd.String("file", "", "Path to a JSON file with subjects and add-ons to create.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "seedcatalog":
		if err := seedCatalogCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *seedCatalogFile == "" {
			seedCatalogCmd.Usage()
			return errHelp
		}
		return cli.seedCatalog(*seedCatalogFile)
	default:
		cli.printUsage()
		return errHelp
	}
}
