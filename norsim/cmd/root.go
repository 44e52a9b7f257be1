// Package cmd provides the command-line interface for norsim.
package cmd

import (
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use: "norsim",
	Short: "Norsim runs storage workloads against simulated NOR flash " +
		"devices.",
	Long: `Norsim simulates NOR flash devices with configurable geometry, ` +
		`wear-out behavior, and transaction logging, and drives them with ` +
		`storage workloads. Device activity can be traced to CSV or SQLite ` +
		`files and inspected live through a monitoring server.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is ./norsim.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false,
		"increase logging verbosity")

	rootCmd.PersistentFlags().Uint64("capacity", 1<<20,
		"device capacity in bytes")
	rootCmd.PersistentFlags().Uint64("read-unit", 1,
		"read granularity in bytes")
	rootCmd.PersistentFlags().Uint64("write-unit", 4,
		"write granularity in bytes")
	rootCmd.PersistentFlags().Uint64("erase-unit", 4096,
		"erase granularity in bytes")
	rootCmd.PersistentFlags().Bool("multiwrite", false,
		"allow writing the same word twice between erases")
	rootCmd.PersistentFlags().Uint64("wear-threshold", 0,
		"erase cycles a page endures before bit failures, 0 disables wear")
	rootCmd.PersistentFlags().Uint64("failure-rate", 1,
		"erase cycles between failures once past the wear threshold")
	rootCmd.PersistentFlags().Bool("probabilistic", false,
		"draw failures randomly instead of on a fixed cycle")
	rootCmd.PersistentFlags().Int64("seed", 0,
		"seed for wear fault positions and workload randomness")
	rootCmd.PersistentFlags().String("log-level", "minimal",
		"transaction log detail: none, minimal, or full")
	rootCmd.PersistentFlags().Int("log-capacity", 0,
		"transaction log entries to retain, 0 keeps everything")
	rootCmd.PersistentFlags().String("backing-file", "",
		"file backing the device contents across sessions")

	rootCmd.PersistentFlags().String("trace-csv", "",
		"write a CSV trace to this file")
	rootCmd.PersistentFlags().String("trace-sqlite", "",
		"write a SQLite trace to this file")
	rootCmd.PersistentFlags().Bool("monitor", false,
		"serve device state over HTTP while the workload runs")
	rootCmd.PersistentFlags().Int("monitor-port", 0,
		"port for the monitoring server, 0 picks a random port")
	rootCmd.PersistentFlags().Uint64("max-ops", 0,
		"stop the workload after this many operations, 0 runs to the end")
	rootCmd.PersistentFlags().Uint64("report-every", 0,
		"log device statistics every N operations, 0 disables reports")

	dieOnErr(viper.BindPFlags(rootCmd.PersistentFlags()))
}

func initConfig() {
	if err := godotenv.Load(); err == nil {
		log.Debug("Loaded environment from .env")
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("norsim")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("norsim")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Fatalf("Failed to read config file: %s", err)
		}
	} else {
		log.Debugf("Using config file %s", viper.ConfigFileUsed())
	}

	if viper.GetBool("verbose") {
		log.SetLevel(log.DebugLevel)
	}
}

func dieOnErr(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
