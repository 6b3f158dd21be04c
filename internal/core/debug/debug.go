// Package debug holds the core's optional debug-mode utilities:
// pprof for runtime profiling, and a gopacket-backed pcap capture
// sink the proxy's Inspector hook can feed so a bridged session can
// be opened directly in Wireshark.
package debug

import (
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof"
	"os"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/sirupsen/logrus"
)

// StartUtilities starts the pprof HTTP server when enabled, carried
// over from the teacher's startPprofServer but taking its settings as
// parameters instead of reading a global viper instance.
func StartUtilities(logger *logrus.Logger, pprofEnabled bool, pprofPort int) {
	if !pprofEnabled {
		return
	}
	addr := fmt.Sprintf("localhost:%d", pprofPort)
	logger.Infof("starting pprof server on %s", addr)
	go func() {
		if err := http.ListenAndServe(addr, nil); err != nil {
			logger.Warnf("error starting pprof server: %s", err)
		}
	}()
}

// PacketCapture writes each captured command as a synthetic TCP
// segment to a pcap file, the gopacket-backed successor to the
// teacher's HTTP-POST packet-analyzer sidecar: rather than relaying
// packets to an external process over HTTP, it wraps each one in a
// minimal Ethernet/IPv4/TCP envelope and appends it to a capture file
// that opens directly in Wireshark.
type PacketCapture struct {
	mu     sync.Mutex
	writer *pcapgo.Writer
	file   *os.File
	seq    uint32
}

// NewPacketCapture creates (or truncates) path and writes the pcap
// file header.
func NewPacketCapture(path string) (*PacketCapture, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating packet capture file: %w", err)
	}
	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing pcap header: %w", err)
	}
	return &PacketCapture{writer: w, file: f}, nil
}

// Close flushes and closes the underlying capture file.
func (c *PacketCapture) Close() error {
	return c.file.Close()
}

// Write appends one command's raw bytes as a synthetic TCP segment
// from srcPort to dstPort over a loopback envelope. The envelope
// addressing is a placeholder; only the payload matters for
// protocol-level dissection.
func (c *PacketCapture) Write(srcPort, dstPort uint16, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0, 0, 0, 0, 0, 1},
		DstMAC:       net.HardwareAddr{0, 0, 0, 0, 0, 2},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.IPv4(127, 0, 0, 1),
		DstIP:    net.IPv4(127, 0, 0, 2),
	}
	tcp := &layers.TCP{
		SrcPort: layers.TCPPort(srcPort),
		DstPort: layers.TCPPort(dstPort),
		Seq:     c.seq,
		Window:  65535,
	}
	if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
		return fmt.Errorf("setting checksum layer: %w", err)
	}
	c.seq += uint32(len(payload))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, tcp, gopacket.Payload(payload)); err != nil {
		return fmt.Errorf("serializing synthetic packet: %w", err)
	}

	return c.writer.WritePacket(gopacket.CaptureInfo{
		Timestamp:     time.Now(),
		CaptureLength: len(buf.Bytes()),
		Length:        len(buf.Bytes()),
	}, buf.Bytes())
}
