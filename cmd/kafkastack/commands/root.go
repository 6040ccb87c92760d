package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "kafkastack",
	Short: "Generate, validate, and probe a Kafka cluster deployment with its monitoring stack",
	Long: `kafkastack manages the declarative surface of a ZooKeeper-coordinated Kafka
cluster and its monitoring stack (Prometheus, Grafana, Alertmanager, exporters):
it renders a mutually consistent deployment tree, validates hand-maintained
configuration files, and probes a running deployment.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("zk-addr", "localhost:2181", "ZooKeeper connect string (for live probes)")
}

// exitOnErrs prints a list of findings and exits non-zero if any exist.
func exitOnErrs(errs []error) {
	if len(errs) == 0 {
		return
	}

	for _, err := range errs {
		fmt.Printf("  %s\n", err)
	}

	os.Exit(1)
}
