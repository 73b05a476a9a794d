package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sensiblebit/certswap"
	"github.com/sensiblebit/certswap/internal"
	"github.com/spf13/cobra"
)

var (
	replaceCommonName string
	replaceCertPath   string
	replaceKeyPath    string
	replaceYes        bool
	replaceDBPath     string
	replaceBundleDir  string
	replaceBundlePass string
)

var replaceCmd = &cobra.Command{
	Use:   "replace <path>",
	Short: "Replace matched certificates and keys in place",
	Long: "Scan a directory tree for PEM certificates matching the replacement " +
		"certificate's common name (and private keys pairing with them), back up each " +
		"affected file, and splice the new PEM blocks in place of the old ones. If the " +
		"certificate file contains exactly one certificate, no common name is needed. " +
		"Private keys are only replaced when --key is given.",
	Example: `  certswap replace /etc --cert new-cert.pem --key new-key.pem
  certswap replace /etc --cert bundle.pem -n svc1.example.com --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runReplace,
}

func init() {
	replaceCmd.Flags().StringVarP(&replaceCommonName, "common-name", "n", "", "Subject common name to match in x509 certificates")
	replaceCmd.Flags().StringVar(&replaceCertPath, "cert", "", "Path to file containing the replacement certificate")
	replaceCmd.Flags().StringVar(&replaceKeyPath, "key", "", "Path to file containing the replacement private key")
	replaceCmd.Flags().BoolVarP(&replaceYes, "yes", "y", false, "Skip the confirmation prompt")
	replaceCmd.Flags().StringVarP(&replaceDBPath, "db", "d", "", "Record matches in a SQLite inventory at this path")
	replaceCmd.Flags().StringVar(&replaceBundleDir, "bundle-out", "", "Also export the new pair (PEM, PKCS#12, JKS) to this directory")
	replaceCmd.Flags().StringVar(&replaceBundlePass, "bundle-password", "changeit", "Password for exported PKCS#12/JKS bundles")
	_ = replaceCmd.MarkFlagRequired("cert")
	replaceCmd.Flags().SetNormalizeFunc(normalizeFlags)

	registerCompletion(replaceCmd, completionInput{flagName: "cert", completeFunc: fileCompletion})
	registerCompletion(replaceCmd, completionInput{flagName: "key", completeFunc: fileCompletion})
}

func runReplace(cmd *cobra.Command, args []string) error {
	cfg, passwords, err := loadScanSetup()
	if err != nil {
		return err
	}

	// Replacement-source failures are fatal: the operator must supply
	// valid input before anything is mutated.
	cert, err := internal.LoadReplacementCert(replaceCertPath, replaceCommonName, passwords)
	if err != nil {
		return err
	}

	var key *certswap.PrivateKey
	var refKeys []*certswap.PrivateKey
	if replaceKeyPath != "" {
		key, err = internal.LoadReplacementKey(replaceKeyPath, cert, passwords)
		if err != nil {
			return err
		}
		refKeys = append(refKeys, key)
	}

	summary := fmt.Sprintf("Replacing certificates with common name %q", cert.CommonName)
	if key != nil {
		summary += " and their private keys"
	}
	ok, err := internal.Confirm(summary, replaceYes, os.Stdin, os.Stdout)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("user declined to replace objects for common name: %s", cert.CommonName)
	}

	locators, err := internal.Find(args[0], cert.CommonName, refKeys, cfg.FindOptions(passwords))
	if err != nil {
		return fmt.Errorf("scanning %s: %w", args[0], err)
	}

	if replaceDBPath != "" {
		db, err := internal.NewDB(replaceDBPath)
		if err != nil {
			return fmt.Errorf("opening inventory: %w", err)
		}
		defer db.Close()
		if err := db.RecordMatches(locators, cert.CommonName, time.Now().UTC()); err != nil {
			return fmt.Errorf("recording matches: %w", err)
		}
	}

	report, err := internal.Replace(locators, cert, key)
	if err != nil {
		return err
	}
	fmt.Printf("Replaced PEMs in %d file(s), skipped %d\n", len(report.Replaced), len(report.Skipped))

	if replaceBundleDir != "" {
		files, err := internal.GenerateBundleFiles(cert, key, replaceBundlePass)
		if err != nil {
			return fmt.Errorf("generating bundle: %w", err)
		}
		if err := internal.WriteBundleFiles(replaceBundleDir, files); err != nil {
			return err
		}
		fmt.Printf("Exported new pair to %s\n", replaceBundleDir)
	}
	return nil
}
