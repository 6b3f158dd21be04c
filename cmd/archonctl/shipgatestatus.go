package main

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/pflag"

	"github.com/quietloop/archon/internal/shipgate"
)

// runShipgateStatus fetches and prints a running shipgate's /status
// endpoint, the same shipgate.Status JSON body StatsProvider reports.
func runShipgateStatus(args []string) error {
	fs := pflag.NewFlagSet("shipgate-status", pflag.ExitOnError)
	addr := fs.StringP("addr", "a", "localhost:12000", "host:port the shipgate's status service is listening on")
	insecure := fs.Bool("insecure", false, "skip TLS certificate verification")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client := &http.Client{Timeout: 5 * time.Second}
	if *insecure {
		client.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}
	}

	var resp *http.Response
	var err error
	for _, scheme := range []string{"https", "http"} {
		resp, err = client.Get(fmt.Sprintf("%s://%s/status", scheme, *addr))
		if err == nil {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("fetching status: %w", err)
	}
	defer resp.Body.Close()

	var status shipgate.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("decoding status: %w", err)
	}

	fmt.Printf("sessions: %d\nlobbies:  %d\nuptime:   %s\n",
		status.SessionCount, status.LobbyCount, time.Since(status.StartedAt).Round(time.Second))
	return nil
}
