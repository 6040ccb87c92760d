package promcfg

import (
	"testing"
	"time"

	"github.com/prometheus/common/model"
	"github.com/stretchr/testify/assert"
)

var testConfig = `global:
    scrape_interval: 15s
    evaluation_interval: 15s
rule_files:
    - alert.rules.yml
alerting:
    alertmanagers:
        - static_configs:
            - targets:
                - alertmanager:9093
scrape_configs:
    - job_name: kafka
      static_configs:
        - targets:
            - kafka-exporter:9308
    - job_name: node
      static_configs:
        - targets:
            - node-exporter:9100
`

func TestParseConfig(t *testing.T) {
	c, err := ParseConfig([]byte(testConfig))
	assert.Nil(t, err)

	assert.Equal(t, model.Duration(15*time.Second), c.Global.ScrapeInterval)
	assert.Equal(t, model.Duration(15*time.Second), c.Global.EvaluationInterval)
	assert.Equal(t, []string{"alert.rules.yml"}, c.RuleFiles)
	assert.Len(t, c.ScrapeConfigs, 2)
}

func TestConfigRoundTrip(t *testing.T) {
	c, err := ParseConfig([]byte(testConfig))
	assert.Nil(t, err)

	out, err := c.Render()
	assert.Nil(t, err)

	c2, err := ParseConfig(out)
	assert.Nil(t, err)
	assert.Equal(t, c, c2)
}

func TestConfigValidate(t *testing.T) {
	c, err := ParseConfig([]byte(testConfig))
	assert.Nil(t, err)
	assert.Nil(t, c.Validate())
}

func TestConfigValidateErrors(t *testing.T) {
	c := &Config{
		ScrapeConfigs: []ScrapeConfig{
			{JobName: "kafka", StaticConfigs: []StaticConfig{{Targets: []string{"kafka-exporter:9308"}}}},
			{JobName: "kafka", StaticConfigs: []StaticConfig{{Targets: []string{"no-port"}}}},
			{JobName: ""},
		},
		Alerting: &AlertingConfig{
			Alertmanagers: []AlertmanagerConfig{
				{StaticConfigs: []StaticConfig{{Targets: []string{"alertmanager"}}}},
			},
		},
	}

	errs := c.Validate()
	assert.Len(t, errs, 4)
}

func TestConfigTargets(t *testing.T) {
	c, err := ParseConfig([]byte(testConfig))
	assert.Nil(t, err)

	targets := c.Targets()
	assert.Equal(t, []string{"kafka-exporter:9308"}, targets["kafka"])
	assert.Equal(t, []string{"node-exporter:9100"}, targets["node"])
}
