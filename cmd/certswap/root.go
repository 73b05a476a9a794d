package main

import (
	"github.com/sensiblebit/certswap/internal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	logLevel     string
	configPath   string
	passwordList []string
	passwordFile string
)

var rootCmd = &cobra.Command{
	Use:   "certswap",
	Short: "Find and replace PEM certificates and keys inside arbitrary files",
	Long: "Locate X.509 certificates and private keys embedded as PEM blocks in files " +
		"under a directory tree, and optionally replace matched pairs in place while " +
		"preserving every other byte of the host files.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetupLogger(logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to scan config YAML")
	rootCmd.PersistentFlags().StringSliceVarP(&passwordList, "passwords", "p", nil, "Comma-separated passwords for encrypted keys")
	rootCmd.PersistentFlags().StringVar(&passwordFile, "password-file", "", "File containing passwords, one per line")

	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(replaceCmd)
	rootCmd.AddCommand(inspectCmd)
}

// normalizeFlags accepts --cn as an alias for --common-name.
func normalizeFlags(f *pflag.FlagSet, name string) pflag.NormalizedName {
	if name == "cn" {
		name = "common-name"
	}
	return pflag.NormalizedName(name)
}

// loadScanSetup resolves the scan config and password list shared by the
// find and replace commands.
func loadScanSetup() (*internal.ScanConfig, []string, error) {
	cfg := &internal.ScanConfig{}
	if configPath != "" {
		loaded, err := internal.LoadScanConfig(configPath)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}
	passwords, err := internal.ProcessPasswords(append(passwordList, cfg.Passwords...), passwordFile)
	if err != nil {
		return nil, nil, err
	}
	return cfg, passwords, nil
}
