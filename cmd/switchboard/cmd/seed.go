package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	seedOPAURL     string
	seedRegoPath   string
	seedConfigPath string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Push the Rego policy and config data to OPA",
	Long: `Upload the Switchboard policy bundle to a running OPA instance:
the Rego module to /v1/policies/switchboard and the policy config data to
/v1/data/switchboard/config.

Run this once after OPA starts (and again after editing the policy files).`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedOPAURL, "opa-url", "http://localhost:8181", "OPA base URL")
	seedCmd.Flags().StringVar(&seedRegoPath, "rego", "policy/base.rego", "path to the Rego module")
	seedCmd.Flags().StringVar(&seedConfigPath, "data", "policy/config.yaml", "path to the policy config YAML")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 10 * time.Second}
	base := strings.TrimRight(seedOPAURL, "/")

	rego, err := os.ReadFile(seedRegoPath)
	if err != nil {
		return fmt.Errorf("failed to read rego module: %w", err)
	}
	if err := opaPut(ctx, client, base+"/v1/policies/switchboard", "text/plain", rego); err != nil {
		return err
	}

	raw, err := os.ReadFile(seedConfigPath)
	if err != nil {
		return fmt.Errorf("failed to read policy config: %w", err)
	}
	var data any
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("failed to parse policy config: %w", err)
	}
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode policy config: %w", err)
	}
	if err := opaPut(ctx, client, base+"/v1/data/switchboard/config", "application/json", body); err != nil {
		return err
	}

	fmt.Printf("Seeded policies to OPA at %s\n", seedOPAURL)
	return nil
}

func opaPut(ctx context.Context, client *http.Client, url, contentType string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach OPA: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("OPA error %d: %s", resp.StatusCode, strings.TrimSpace(string(text)))
	}
	return nil
}
