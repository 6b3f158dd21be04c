package encryption

import (
	"testing"

	"github.com/go-test/deep"
)

func TestV2Stream_EncryptDecryptRoundTrip(t *testing.T) {
	plaintext := []byte("the rookie arrives on ragol ")
	enc := NewV2Stream([]byte{1, 2, 3, 4})
	dec := NewV2Stream([]byte{1, 2, 3, 4})

	buf := append([]byte{}, plaintext...)
	enc.Encrypt(buf, true)
	if diff := deep.Equal(buf, plaintext); diff == nil {
		t.Fatalf("ciphertext equals plaintext")
	}

	dec.Decrypt(buf, true)
	if diff := deep.Equal(buf, plaintext); diff != nil {
		t.Errorf("round trip mismatch: %v", diff)
	}
}

func TestV3Stream_EncryptDecryptRoundTrip(t *testing.T) {
	plaintext := make([]byte, 2100) // exceeds one table cycle to exercise mix()
	for i := range plaintext {
		plaintext[i] = byte(i)
	}
	enc := NewV3Stream([]byte{9, 9, 9, 9})
	dec := NewV3Stream([]byte{9, 9, 9, 9})

	buf := append([]byte{}, plaintext...)
	enc.Encrypt(buf, true)
	dec.Decrypt(buf, true)

	if diff := deep.Equal(buf, plaintext); diff != nil {
		t.Errorf("round trip mismatch across a mix() boundary: %v", diff)
	}
}

func TestStream_PeekWithoutAdvanceLeavesStateUnchanged(t *testing.T) {
	plaintext := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	c := NewV2Stream([]byte{4, 3, 2, 1})

	peekA := append([]byte{}, plaintext...)
	c.Decrypt(peekA, false)

	peekB := append([]byte{}, plaintext...)
	c.Decrypt(peekB, false)

	if diff := deep.Equal(peekA, peekB); diff != nil {
		t.Errorf("two successive non-advancing peeks diverged: %v", diff)
	}

	// Now actually consume, then peek again: the second peek must differ
	// from the first since state has moved on.
	consumed := append([]byte{}, plaintext...)
	c.Decrypt(consumed, true)

	peekC := append([]byte{}, plaintext...)
	c.Decrypt(peekC, false)
	if diff := deep.Equal(peekA, peekC); diff == nil {
		t.Errorf("peek after an advancing decrypt should differ from the original peek")
	}
}

func TestFinalBlock_EncryptDecryptRoundTrip(t *testing.T) {
	kf := GenerateKeyFile(123)
	plaintext := make([]byte, 4200) // exceeds one table cycle
	for i := range plaintext {
		plaintext[i] = byte(i * 7)
	}

	enc := NewFinalBlock(kf, []byte("client seed pool entry"), []byte("server seed pool entry"))
	dec := NewFinalBlock(kf, []byte("client seed pool entry"), []byte("server seed pool entry"))

	buf := append([]byte{}, plaintext...)
	enc.Encrypt(buf, true)
	dec.Decrypt(buf, true)

	if diff := deep.Equal(buf, plaintext); diff != nil {
		t.Errorf("round trip mismatch: %v", diff)
	}
}

func TestFinalBlock_DirectionsAreRelatedNotIdentical(t *testing.T) {
	kf := GenerateKeyFile(9)
	clientToServer := NewFinalBlock(kf, []byte("client"), []byte("server"))
	serverToClient := NewFinalBlock(kf, []byte("server"), []byte("client"))

	plaintext := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	a := append([]byte{}, plaintext...)
	b := append([]byte{}, plaintext...)
	clientToServer.Encrypt(a, true)
	serverToClient.Encrypt(b, true)

	if diff := deep.Equal(a, b); diff == nil {
		t.Errorf("swapped seed order produced identical keystreams")
	}
}

func TestDetector_IdentifiesCorrectPoolEntry(t *testing.T) {
	pool := DefaultKeyPool(6)
	const winner = 3

	clientSeed, serverSeed := []byte("client seed"), []byte("server seed")
	realCipher := NewFinalBlock(pool[winner], clientSeed, serverSeed)

	plaintextHeader := []byte{20, 0, 0, 0, 0x93, 0, 0, 0} // size=20, command=0x93
	body := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	firstCommand := append(append([]byte{}, plaintextHeader...), body...)

	ciphertext := append([]byte{}, firstCommand...)
	realCipher.Encrypt(ciphertext, true)

	d := NewDetector(pool, clientSeed, serverSeed, []uint16{0x93, 0x9D, 0x9E})
	trial := append([]byte{}, ciphertext...)
	d.Decrypt(trial, true)

	if !d.IsIdentified() {
		t.Fatalf("detector failed to identify any candidate")
	}
	if diff := deep.Equal(d.Identified(), pool[winner]); diff != nil {
		t.Errorf("detector identified the wrong pool entry: %v", diff)
	}
	if diff := deep.Equal(trial, firstCommand); diff != nil {
		t.Errorf("decrypted first command mismatch: %v", diff)
	}
}

func TestDetector_UnknownCommandNeverIdentifies(t *testing.T) {
	pool := DefaultKeyPool(4)
	clientSeed, serverSeed := []byte("c"), []byte("s")
	realCipher := NewFinalBlock(pool[0], clientSeed, serverSeed)

	plaintextHeader := []byte{20, 0, 0, 0, 0xFF, 0xFF, 0, 0} // command id not in known set
	ciphertext := append([]byte{}, plaintextHeader...)
	realCipher.Encrypt(ciphertext, true)

	d := NewDetector(pool, clientSeed, serverSeed, []uint16{0x93})
	trial := append([]byte{}, ciphertext...)
	d.Decrypt(trial, true)

	if d.IsIdentified() {
		t.Fatalf("detector identified a candidate for an unrecognized command id")
	}
}
