package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/quietloop/archon/internal/core"
	"github.com/quietloop/archon/internal/store"
)

func runAddAccount(args []string) error {
	fs := pflag.NewFlagSet("add-account", pflag.ExitOnError)
	configPath := fs.StringP("config", "c", "./", "Path to the directory containing the server config file")
	serial := fs.Uint32("serial", 0, "Serial number for the BB/console login families")
	accessKey := fs.String("access-key", "", "Access key for the BB/console login families")
	username := fs.String("username", "", "Username for Final's login family (prompted if omitted)")
	password := fs.String("password", "", "Password for Final's login family (prompted if omitted)")
	email := fs.String("email", "", "Contact email for the account")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *username == "" {
		*username = scanInput("Username")
	}
	if *password == "" {
		*password = scanInput("Password")
	}

	config := core.LoadConfig(*configPath)
	s, err := openStore(config)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	account, err := s.CreateAccount(*serial, *accessKey, *username, *password, *email)
	if err != nil {
		return fmt.Errorf("creating account: %w", err)
	}
	fmt.Println("created account with ID", account.ID)
	return nil
}

func openStore(config *core.Config) (*store.Store, error) {
	if config.Database.Engine == "sqlite" {
		return store.OpenSQLite(config.Database.Filename)
	}
	return store.Open(config.DatabaseURL(), false)
}

func scanInput(prompt string) string {
	fmt.Printf("%s: ", prompt)
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Scan()
	return scanner.Text()
}
