// Package cli implements the libra command line interface.
package cli

import (
	"fmt"
	"os"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kengeo/libra/logging"
)

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "libra",
		Short: "A command-line utility for running validator clusters.",
		Long: `libra runs clusters of BFT validators that agree on a chain of blocks.

The 'run' command starts a local cluster of validators and reports how many
blocks each of them committed. The 'keygen' command generates the keys a
cluster needs. Use 'libra help run' to view all parameters.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Usage()
		},
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.libra.yaml)")

	rootCmd.PersistentFlags().String("log-level", "info", "sets the log level (debug, info, warn, error)")
	cobra.CheckErr(viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level")))
	rootCmd.PersistentFlags().StringSlice("log-pkgs", []string{}, "set the log level on a per-package basis.")
	cobra.CheckErr(viper.BindPFlag("log-pkgs", rootCmd.PersistentFlags().Lookup("log-pkgs")))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".libra" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".libra")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	logging.SetLogLevel(viper.GetString("log-level"))

	for _, arg := range viper.GetStringSlice("log-pkgs") {
		pkg, level, ok := strings.Cut(arg, ":")
		if !ok {
			fmt.Fprintf(os.Stderr, "invalid package log level '%s', expected 'package:level'\n", arg)
			os.Exit(1)
		}
		logging.SetPackageLogLevel(pkg, level)
	}
}
