package shipgate

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
)

// Client queries a running core's shipgate status endpoint, used by
// the shipgate-status operator command and by any monitoring probe
// that wants live session/lobby counts without parsing logs.
type Client struct {
	addr       string
	httpClient *http.Client
}

// NewClient returns a Client for the shipgate status endpoint at
// addr. If certFile is non-empty, the client verifies the server's
// certificate against it instead of the system root pool, mirroring
// the teacher's NewRPCClient/NewRPCClientWithCert mutual-TLS setup but
// simplified to server-certificate verification only, since this
// endpoint is read-only and carries no credentials.
func NewClient(addr, certFile string) (*Client, error) {
	httpClient := &http.Client{}
	if certFile != "" {
		caCert, err := os.ReadFile(certFile)
		if err != nil {
			return nil, fmt.Errorf("error loading certificate file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("no certificates found in %s", certFile)
		}
		httpClient.Transport = &http.Transport{TLSClientConfig: &tls.Config{RootCAs: pool}}
	}
	return &Client{addr: addr, httpClient: httpClient}, nil
}

// FetchStatus requests the current Status snapshot.
func (c *Client) FetchStatus(ctx context.Context) (Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.addr+"/status", nil)
	if err != nil {
		return Status{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Status{}, fmt.Errorf("failed to fetch status from shipgate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Status{}, fmt.Errorf("shipgate returned status %d", resp.StatusCode)
	}

	var status Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return Status{}, fmt.Errorf("failed to decode shipgate status response: %w", err)
	}
	return status, nil
}
