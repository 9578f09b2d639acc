package main

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kdadks/eyogi/core/compliance"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db   *sqlx.DB
	repo compliance.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [args] - run database migrations (up, down, status, ...)")
	fmt.Println("  additem -title TITLE -role ROLE -type TYPE [-due YYYY-MM-DD] [-optional] - create a compliance item")
	fmt.Println("  deactivateitem -id ID - deactivate a compliance item")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addItemCmd := flag.NewFlagSet("additem", flag.ExitOnError)
	addItemTitle := addItemCmd.String("title", "", "The item's title.")
	addItemRole := addItemCmd.String("role", "", "The target role: teacher, parent or student.")
	addItemType := addItemCmd.String("type", "", "The item type: form_submission, verification or document_upload.")
	addItemDue := addItemCmd.String("due", "", "Optional due date (YYYY-MM-DD).")
	addItemOptional := addItemCmd.Bool("optional", false, "Mark the item as non-mandatory.")

	deactivateCmd := flag.NewFlagSet("deactivateitem", flag.ExitOnError)
	deactivateID := deactivateCmd.String("id", "", "The item's ID.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "additem":
		if err := addItemCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addItemTitle == "" || *addItemRole == "" || *addItemType == "" {
			addItemCmd.Usage()
			return errHelp
		}
		var due *time.Time
		if *addItemDue != "" {
			d, err := time.Parse("2006-01-02", *addItemDue)
			if err != nil {
				return fmt.Errorf("due date must be of form YYYY-MM-DD (got %q)", *addItemDue)
			}
			due = &d
		}
		return cli.addItem(*addItemTitle, *addItemRole, *addItemType, due, !*addItemOptional)
	case "deactivateitem":
		if err := deactivateCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *deactivateID == "" {
			deactivateCmd.Usage()
			return errHelp
		}
		return cli.deactivateItem(*deactivateID)
	default:
		cli.printUsage()
		return errHelp
	}
}
