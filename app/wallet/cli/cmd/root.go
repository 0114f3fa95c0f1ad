// Package cmd contains wallet app
package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	nodeURL  string
	relayURL string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&nodeURL, "node", "n", "http://localhost:8080", "Url of the node.")
	rootCmd.PersistentFlags().StringVarP(&relayURL, "relay", "r", "http://localhost:3000", "Url of the relay.")
}

var rootCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Your simple wallet",
}

// Execute runs the wallet.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// =============================================================================

var client = http.Client{
	Timeout: 10 * time.Second,
}

func get(url string, v any) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decode(resp, http.StatusOK, v)
}

func post(url string, body any, v any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	resp, err := client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decode(resp, http.StatusAccepted, v)
}

func decode(resp *http.Response, want int, v any) error {
	if resp.StatusCode != want {
		var er struct {
			Error  string            `json:"error"`
			Fields map[string]string `json:"fields"`
		}
		data, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(data, &er); err != nil || er.Error == "" {
			return fmt.Errorf("status %d: %s", resp.StatusCode, string(data))
		}
		if len(er.Fields) > 0 {
			return fmt.Errorf("status %d: %s: %v", resp.StatusCode, er.Error, er.Fields)
		}
		return fmt.Errorf("status %d: %s", resp.StatusCode, er.Error)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}
