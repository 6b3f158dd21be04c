package main

import (
	"bufio"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// runKeygen generates a self-signed X.509 certificate and RSA key,
// the pair the shipgate's ShipgateServer.CertFile/KeyFile config
// entries point at, adapted from the teacher's standalone certgen tool
// into an archonctl subcommand.
func runKeygen(args []string) error {
	fs := pflag.NewFlagSet("keygen", pflag.ExitOnError)
	ipFlag := fs.String("ip", "", "Server's external IP address(es), comma-separated")
	certOut := fs.String("cert-out", "certificate.pem", "Path to write the certificate")
	keyOut := fs.String("key-out", "key.pem", "Path to write the private key")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var serverIPs []string
	if *ipFlag == "" {
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("server's external_ip: ")
			scanner.Scan()
			if scanner.Text() == "" {
				break
			}
			serverIPs = append(serverIPs, scanner.Text())
		}
	} else {
		serverIPs = strings.Split(*ipFlag, ",")
	}

	template, err := certTemplate(serverIPs)
	if err != nil {
		return fmt.Errorf("building certificate template: %w", err)
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return fmt.Errorf("generating RSA key: %w", err)
	}

	if err := writeCertificate(*certOut, template, privateKey); err != nil {
		return err
	}
	if err := writePrivateKey(*keyOut, privateKey); err != nil {
		return err
	}

	fmt.Printf("wrote %s and %s\n", *certOut, *keyOut)
	return nil
}

func certTemplate(serverIPs []string) (*x509.Certificate, error) {
	serialNumberLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	serialNumber, err := rand.Int(rand.Reader, serialNumberLimit)
	if err != nil {
		return nil, err
	}

	var ips []net.IP
	for _, ip := range serverIPs {
		parsedIP := net.ParseIP(ip)
		if parsedIP == nil {
			return nil, fmt.Errorf("%v is not a valid IP address", ip)
		}
		ips = append(ips, parsedIP)
	}

	return &x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{"Archon PSO Server"},
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(time.Hour * 24 * 365 * 10),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		IPAddresses:           ips,
	}, nil
}

func writeCertificate(path string, template *x509.Certificate, key *rsa.PrivateKey) error {
	certBytes, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return fmt.Errorf("creating certificate: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer out.Close()
	return pem.Encode(out, &pem.Block{Type: "CERTIFICATE", Bytes: certBytes})
}

func writePrivateKey(path string, key *rsa.PrivateKey) error {
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer out.Close()
	return pem.Encode(out, &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
}
