package main

import (
	"github.com/imroyan/KafkaClusterSetup/cmd/kafkastack/commands"
)

func main() {
	commands.Execute()
}
