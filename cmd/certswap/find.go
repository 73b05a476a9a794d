package main

import (
	"fmt"
	"time"

	"github.com/sensiblebit/certswap"
	"github.com/sensiblebit/certswap/internal"
	"github.com/spf13/cobra"
)

var (
	findCommonName string
	findDBPath     string
)

var findCmd = &cobra.Command{
	Use:   "find <path>",
	Short: "Find certificates and keys matching a common name",
	Long: "Recursively scan a directory tree for PEM certificates whose subject common " +
		"name matches, and for private keys pairing with them. Prints matching file paths.",
	Example: `  certswap find /etc -n svc1.example.com
  certswap find /srv/config -n svc1.example.com --db matches.sqlite`,
	Args: cobra.ExactArgs(1),
	RunE: runFind,
}

func init() {
	findCmd.Flags().StringVarP(&findCommonName, "common-name", "n", "", "Subject common name to match in x509 certificates")
	findCmd.Flags().StringVarP(&findDBPath, "db", "d", "", "Record matches in a SQLite inventory at this path")
	_ = findCmd.MarkFlagRequired("common-name")
	findCmd.Flags().SetNormalizeFunc(normalizeFlags)
}

func runFind(cmd *cobra.Command, args []string) error {
	cfg, passwords, err := loadScanSetup()
	if err != nil {
		return err
	}

	locators, err := internal.Find(args[0], findCommonName, nil, cfg.FindOptions(passwords))
	if err != nil {
		return fmt.Errorf("scanning %s: %w", args[0], err)
	}

	printLocators(locators)

	if findDBPath != "" {
		db, err := internal.NewDB(findDBPath)
		if err != nil {
			return fmt.Errorf("opening inventory: %w", err)
		}
		defer db.Close()
		if err := db.RecordMatches(locators, findCommonName, time.Now().UTC()); err != nil {
			return fmt.Errorf("recording matches: %w", err)
		}
		summary, err := db.GetSummary()
		if err != nil {
			return err
		}
		fmt.Printf("\nInventory: %d certificate(s), %d key(s) across %d file(s)\n",
			summary.Certificates, summary.PrivateKeys, summary.Files)
	}
	return nil
}

// printLocators prints the matched certificate paths and private-key paths
// as two lists.
func printLocators(locators []certswap.Locator) {
	fmt.Println("\nMatching certificates:")
	for _, loc := range locators {
		if loc.Kind == certswap.KindCertificate {
			fmt.Printf("\t%s\n", loc.Path)
		}
	}
	fmt.Println("\nMatching private keys:")
	for _, loc := range locators {
		if loc.Kind == certswap.KindPrivateKey {
			fmt.Printf("\t%s\n", loc.Path)
		}
	}
}
