package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sarchlab/norsim/workloads/kvlog"
)

var kvCmd = &cobra.Command{
	Use:   "kv",
	Short: "Run the key-value workload.",
	Long: `The key-value workload stores values under random keys and ` +
		`removes them again, compacting the log whenever the device fills ` +
		`up. It exercises uneven page wear, since compaction rewrites the ` +
		`whole device.`,
	Run: func(cmd *cobra.Command, args []string) {
		device := buildDevice("Flash")
		defer device.Close()

		err := kvlog.RandomFill(
			device, viper.GetInt64("seed"), progressHook())
		if err != nil {
			log.Fatalf("Key-value workload failed: %s", err)
		}

		reportDevice(device)
	},
}

func init() {
	rootCmd.AddCommand(kvCmd)
}
