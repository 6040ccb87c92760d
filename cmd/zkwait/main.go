// Command zkwait gates broker startup on the legacy coordination service.
// It polls the configured ZooKeeper address until a TCP connection is
// accepted, then replaces itself with the broker process, passing the
// static configuration file as the sole argument. The legacy-mode
// environment override is applied before handoff on every path.
//
// With no -timeout the wait is unbounded; the surrounding orchestrator's
// restart policy is the only escape hatch. This is deliberate: an
// unreachable dependency must never allow the broker to start
// half-configured.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jamiealquiza/envy"
	"github.com/rs/zerolog"

	"github.com/imroyan/KafkaClusterSetup/kafkacfg"
	"github.com/imroyan/KafkaClusterSetup/waitfor"
)

var (
	// This can be set with -ldflags "-X main.version=x.x.x"
	version = "0.0.0"

	// Config holds configuration
	// parameters.
	Config struct {
		ZKAddr       string
		Interval     int
		MaxInterval  int
		Timeout      int
		ServerConfig string
		KafkaBin     string
	}
)

func main() {
	v := flag.Bool("version", false, "version")
	flag.StringVar(&Config.ZKAddr, "zk-addr", "zookeeper:2181", "ZooKeeper connect string the broker depends on")
	flag.IntVar(&Config.Interval, "interval", 1, "Dependency polling interval (seconds)")
	flag.IntVar(&Config.MaxInterval, "max-interval", 0, "Exponential backoff cap (seconds, 0 keeps a fixed interval)")
	flag.IntVar(&Config.Timeout, "timeout", 0, "Total wait budget (seconds, 0 waits forever)")
	flag.StringVar(&Config.ServerConfig, "server-config", "/etc/kafka/server.properties", "Static broker configuration file passed to the target")
	flag.StringVar(&Config.KafkaBin, "kafka-bin", "/opt/bitnami/scripts/kafka/run.sh", "Target broker binary")

	envy.Parse("ZKWAIT")
	flag.Parse()

	if *v {
		fmt.Println(version)
		os.Exit(0)
	}

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	// The connect string may name the whole ensemble; reachability of any
	// one member is enough to proceed.
	ensemble, err := kafkacfg.ParseZKConnect(Config.ZKAddr)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid -zk-addr")
	}

	gate, err := waitfor.NewGate(&waitfor.Config{
		Address:     ensemble.Hosts[0],
		Interval:    time.Duration(Config.Interval) * time.Second,
		MaxInterval: time.Duration(Config.MaxInterval) * time.Second,
		Timeout:     time.Duration(Config.Timeout) * time.Second,
		Logger:      log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("gate init failed")
	}

	// Any passthrough args follow the config file verbatim.
	args := append([]string{Config.ServerConfig}, flag.Args()...)

	handoff, err := waitfor.NewHandoff(Config.KafkaBin, args, kafkacfg.LegacyModeEnv())
	if err != nil {
		log.Fatal().Err(err).Msg("handoff init failed")
	}

	// Run only returns on failure; on success the process image has been
	// replaced.
	if err := waitfor.Run(context.Background(), gate, handoff); err != nil {
		log.Fatal().Err(err).Msg("startup gate failed")
	}
}
