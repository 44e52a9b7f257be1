package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sarchlab/norsim/workloads/queue"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Run the queue workload.",
	Long: `The queue workload pushes fixed-size elements until the device ` +
		`fills up, then pops everything back and verifies the payloads. ` +
		`Each fill-and-drain round cycles every page through an erase.`,
	Run: func(cmd *cobra.Command, args []string) {
		device := buildDevice("Flash")
		defer device.Close()

		err := queue.PushFullPopAll(
			device, viper.GetInt("runs"), progressHook())
		if err != nil {
			log.Fatalf("Queue workload failed: %s", err)
		}

		reportDevice(device)
	},
}

func init() {
	rootCmd.AddCommand(queueCmd)

	queueCmd.Flags().Int("runs", 1, "number of fill-and-drain rounds")
	dieOnErr(viper.BindPFlag("runs", queueCmd.Flags().Lookup("runs")))
}
