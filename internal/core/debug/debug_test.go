package debug

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPacketCapture_WriteAppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.pcap")
	cap, err := NewPacketCapture(path)
	if err != nil {
		t.Fatalf("NewPacketCapture() error = %v", err)
	}
	defer cap.Close()

	if err := cap.Write(5110, 9100, []byte{0x04, 0x00, 0x93, 0x00, 1, 2, 3, 4}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := cap.Write(9100, 5110, []byte{0x04, 0x00, 0x19, 0x00}); err != nil {
		t.Fatalf("second Write() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Size() == 0 {
		t.Fatalf("capture file is empty after writes")
	}
}
