package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/imroyan/KafkaClusterSetup/amconfig"
	"github.com/imroyan/KafkaClusterSetup/compose"
	"github.com/imroyan/KafkaClusterSetup/kafkacfg"
	"github.com/imroyan/KafkaClusterSetup/promcfg"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate hand-maintained deployment configuration",
	Long: `Check statically validates the deployment's configuration files: broker
fragments form a coherent cluster (distinct ids, one ensemble), the compose
file lints clean, and the collector, rule, and alert router files satisfy
their external schemas.`,
	Run: check,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().String("kafka-dir", "", "Directory of broker server.properties fragments")
	checkCmd.Flags().String("compose-file", "", "Compose file to lint")
	checkCmd.Flags().String("prometheus-config", "", "Collector configuration file")
	checkCmd.Flags().String("rules", "", "Alert rule file")
	checkCmd.Flags().String("alertmanager-config", "", "Alert router configuration file")
}

func check(cmd *cobra.Command, _ []string) {
	var errs []error
	var checked int

	if dir, _ := cmd.Flags().GetString("kafka-dir"); dir != "" {
		checked++
		errs = append(errs, checkCluster(dir)...)
	}

	if f, _ := cmd.Flags().GetString("compose-file"); f != "" {
		checked++
		errs = append(errs, checkFile(f, func(b []byte) []error {
			p, err := compose.Parse(b)
			if err != nil {
				return []error{err}
			}
			return compose.Lint(p)
		})...)
	}

	if f, _ := cmd.Flags().GetString("prometheus-config"); f != "" {
		checked++
		errs = append(errs, checkFile(f, func(b []byte) []error {
			c, err := promcfg.ParseConfig(b)
			if err != nil {
				return []error{err}
			}
			return c.Validate()
		})...)
	}

	if f, _ := cmd.Flags().GetString("rules"); f != "" {
		checked++
		errs = append(errs, checkFile(f, func(b []byte) []error {
			r, err := promcfg.ParseRuleFile(b)
			if err != nil {
				return []error{err}
			}
			return r.Validate()
		})...)
	}

	if f, _ := cmd.Flags().GetString("alertmanager-config"); f != "" {
		checked++
		errs = append(errs, checkFile(f, func(b []byte) []error {
			c, err := amconfig.Parse(b)
			if err != nil {
				return []error{err}
			}
			return c.Validate()
		})...)
	}

	if checked == 0 {
		fmt.Println("Nothing to check; see --help for inputs")
		os.Exit(1)
	}

	if len(errs) > 0 {
		fmt.Printf("%d problem(s) found:\n", len(errs))
		exitOnErrs(errs)
	}

	fmt.Println("OK")
}

func checkFile(path string, fn func([]byte) []error) []error {
	b, err := os.ReadFile(path)
	if err != nil {
		return []error{err}
	}

	var errs []error
	for _, e := range fn(b) {
		errs = append(errs, fmt.Errorf("%s: %s", path, e))
	}

	return errs
}

// checkCluster loads every properties fragment in dir and validates them
// as one cluster.
func checkCluster(dir string) []error {
	paths, err := filepath.Glob(filepath.Join(dir, "*.properties"))
	if err != nil {
		return []error{err}
	}

	if len(paths) == 0 {
		return []error{fmt.Errorf("no .properties fragments under %s", dir)}
	}

	sort.Strings(paths)

	var brokers []kafkacfg.BrokerConfig
	var errs []error

	for _, path := range paths {
		b, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		p, err := kafkacfg.ParseProperties(b)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %s", path, err))
			continue
		}

		bc, err := kafkacfg.BrokerFromProperties(p)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %s", path, err))
			continue
		}

		brokers = append(brokers, bc)
	}

	if len(errs) > 0 {
		return errs
	}

	return kafkacfg.ValidateCluster(brokers)
}
