package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/imroyan/KafkaClusterSetup/kafkacfg"
	"github.com/imroyan/KafkaClusterSetup/preflight"
	"github.com/imroyan/KafkaClusterSetup/promcfg"
	"github.com/imroyan/KafkaClusterSetup/zkcheck"
)

var preflightCmd = &cobra.Command{
	Use:   "preflight",
	Short: "Probe a running deployment",
	Long: `Preflight verifies a running deployment from the outside: every scrape
target in the collector configuration answers with parseable exposition
format, the coordination service holds a session, and the expected broker
ids are registered.`,
	Run: runPreflight,
}

func init() {
	rootCmd.AddCommand(preflightCmd)

	preflightCmd.Flags().String("prometheus-config", "", "Collector configuration file providing the scrape targets")
	preflightCmd.Flags().String("expect-brokers", "", "Broker ids expected to be registered (comma delim. list)")
	preflightCmd.Flags().Int("probe-timeout", 5, "Per-target probe timeout (seconds)")
}

func runPreflight(cmd *cobra.Command, _ []string) {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfgPath, _ := cmd.Flags().GetString("prometheus-config")
	expect, _ := cmd.Flags().GetString("expect-brokers")
	timeout, _ := cmd.Flags().GetInt("probe-timeout")

	if cfgPath == "" && expect == "" {
		fmt.Println("Nothing to probe; see --help for inputs")
		os.Exit(1)
	}

	var failed bool

	if cfgPath != "" {
		b, err := os.ReadFile(cfgPath)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		cfg, err := promcfg.ParseConfig(b)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		p := preflight.NewProber(&preflight.Config{
			Timeout: time.Duration(timeout) * time.Second,
			Logger:  log,
		})

		results := p.ScrapeAll(context.Background(), cfg.Targets())
		for _, r := range preflight.Failed(results) {
			fmt.Printf("  job %s target %s: %s\n", r.Job, r.Target, r.Err)
			failed = true
		}
	}

	if expect != "" {
		if err := probeBrokers(cmd, expect, timeout); err != nil {
			fmt.Printf("  brokers: %s\n", err)
			failed = true
		}
	}

	if failed {
		os.Exit(1)
	}

	fmt.Println("OK")
}

func probeBrokers(cmd *cobra.Command, expect string, timeout int) error {
	zkAddr := cmd.Flag("zk-addr").Value.String()

	ensemble, err := kafkacfg.ParseZKConnect(zkAddr)
	if err != nil {
		return err
	}

	var expected []int
	for _, s := range strings.Split(expect, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("bad broker id %q", s)
		}

		expected = append(expected, id)
	}

	client, err := zkcheck.NewClient(&zkcheck.Config{Ensemble: ensemble})
	if err != nil {
		return err
	}
	defer client.Close()

	if err := zkcheck.WaitReady(client, time.Duration(timeout)*time.Second); err != nil {
		return err
	}

	return preflight.CheckBrokers(client, expected)
}
