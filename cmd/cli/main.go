package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	baseURL string
	tenant  string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pspcore-cli",
		Short: "PSP core CLI tool",
		Long:  `A command line interface for interacting with the PSP core API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the PSP core API")
	rootCmd.PersistentFlags().StringVar(&tenant, "tenant", "", "Tenant ID sent as X-Tenant-ID")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check service health",
		Run: func(cmd *cobra.Command, args []string) {
			checkHealth()
		},
	}
	rootCmd.AddCommand(healthCmd)

	balanceCmd := &cobra.Command{
		Use:   "balance <account-id>",
		Short: "Show an account's derived balance",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			showBalance(args[0])
		},
	}
	rootCmd.AddCommand(balanceCmd)

	consistencyCmd := &cobra.Command{
		Use:   "consistency",
		Short: "Check ledger consistency",
		Run: func(cmd *cobra.Command, args []string) {
			checkConsistency()
		},
	}
	rootCmd.AddCommand(consistencyCmd)

	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Event log operations",
	}

	var after int64
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export the event log as JSON lines",
		Run: func(cmd *cobra.Command, args []string) {
			exportEvents(after)
		},
	}
	exportCmd.Flags().Int64Var(&after, "after", 0, "Export events strictly after this sequence")
	eventsCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(eventsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func doGet(path string) (int, []byte) {
	client := &http.Client{Timeout: timeout}

	req, err := http.NewRequest(http.MethodGet, baseURL+path, nil)
	if err != nil {
		fmt.Printf("Error building request: %v\n", err)
		os.Exit(1)
	}
	if tenant != "" {
		req.Header.Set("X-Tenant-ID", tenant)
	}

	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	return resp.StatusCode, body
}

func checkHealth() {
	status, body := doGet("/ready")
	if status != http.StatusOK {
		fmt.Printf("Service NOT ready (Status: %d)\nResponse: %s\n", status, string(body))
		os.Exit(1)
	}

	fmt.Println("Service ready")
	fmt.Println(string(body))
}

func showBalance(accountID string) {
	status, body := doGet("/api/v1/accounts/" + accountID + "/balance")
	if status != http.StatusOK {
		fmt.Printf("Balance request FAILED (Status: %d)\nResponse: %s\n", status, string(body))
		os.Exit(1)
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		fmt.Printf("Failed to parse response: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Account: %s\n", result["account_id"])
	fmt.Printf("Balance: %v\n", result["balance"])
	fmt.Printf("As of:   %v\n", result["as_of"])
}

func checkConsistency() {
	status, body := doGet("/api/v1/ledger/consistency")
	if status != http.StatusOK {
		fmt.Printf("Consistency check FAILED (Status: %d)\nResponse: %s\n", status, string(body))
		os.Exit(1)
	}

	fmt.Println("Consistency check PASSED")
}

func exportEvents(after int64) {
	for {
		status, body := doGet(fmt.Sprintf("/api/v1/events?after=%d&limit=500", after))
		if status != http.StatusOK {
			fmt.Printf("Event export FAILED (Status: %d)\nResponse: %s\n", status, string(body))
			os.Exit(1)
		}

		var events []map[string]any
		if err := json.Unmarshal(body, &events); err != nil {
			fmt.Printf("Failed to parse response: %v\n", err)
			os.Exit(1)
		}

		if len(events) == 0 {
			return
		}

		for _, event := range events {
			line, err := json.Marshal(event)
			if err != nil {
				fmt.Printf("Failed to encode event: %v\n", err)
				os.Exit(1)
			}

			fmt.Println(string(line))

			if seq, ok := event["sequence"].(float64); ok {
				after = int64(seq)
			}
		}

		if len(events) < 500 {
			return
		}
	}
}
