package main

import "testing"

func TestCertTemplate_RejectsInvalidIP(t *testing.T) {
	if _, err := certTemplate([]string{"not-an-ip"}); err == nil {
		t.Fatal("certTemplate() error = nil, want error for invalid IP")
	}
}

func TestCertTemplate_AcceptsValidIPs(t *testing.T) {
	tmpl, err := certTemplate([]string{"127.0.0.1", "10.0.0.5"})
	if err != nil {
		t.Fatalf("certTemplate() error = %v", err)
	}
	if len(tmpl.IPAddresses) != 2 {
		t.Fatalf("len(IPAddresses) = %d, want 2", len(tmpl.IPAddresses))
	}
}
