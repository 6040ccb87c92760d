package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/imroyan/KafkaClusterSetup/stack"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the reference deployment tree",
	Long: `Render writes a mutually consistent deployment: compose file, broker
config fragments, collector config and rule file, alert router config, and
dashboard provisioning. The tree is verified before anything is written.`,
	Run: render,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().String("out-path", "deploy", "Path to write the deployment tree to")
	renderCmd.Flags().Int("brokers", 3, "Number of broker nodes")
	renderCmd.Flags().String("kafka-image", stack.DefaultKafkaImage, "Broker image reference (must be a pinned, pre-KRaft-cutover tag)")
	renderCmd.Flags().String("alert-email", "ops@example.org", "Alert notification destination address")
	renderCmd.Flags().String("smtp-host", "mailhog:1025", "SMTP smarthost for the alert router")
}

func render(cmd *cobra.Command, _ []string) {
	brokers, _ := cmd.Flags().GetInt("brokers")
	image, _ := cmd.Flags().GetString("kafka-image")
	email, _ := cmd.Flags().GetString("alert-email")
	smtp, _ := cmd.Flags().GetString("smtp-host")
	out, _ := cmd.Flags().GetString("out-path")

	d, err := stack.Build(stack.Options{
		BrokerCount:   brokers,
		KafkaImage:    image,
		AlertEmailTo:  email,
		SMTPSmarthost: smtp,
	})
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	if errs := d.Verify(); len(errs) > 0 {
		fmt.Println("Deployment failed verification:")
		exitOnErrs(errs)
	}

	if err := d.Render(out); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	fmt.Printf("Deployment written to %s (brokers: %v)\n", out, d.BrokerIDs())
}
