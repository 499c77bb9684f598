package nearby

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// PayloadKind distinguishes the payload representations.
type PayloadKind int

const (
	PayloadBytes PayloadKind = iota
	PayloadFile
	PayloadStream
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadBytes:
		return "bytes"
	case PayloadFile:
		return "file"
	case PayloadStream:
		return "stream"
	default:
		return "unknown"
	}
}

// ParsePayloadKind accepts the names produced by String.
func ParsePayloadKind(s string) (PayloadKind, error) {
	switch s {
	case "bytes":
		return PayloadBytes, nil
	case "file":
		return PayloadFile, nil
	case "stream":
		return PayloadStream, nil
	default:
		return 0, fmt.Errorf("unknown payload kind %q", s)
	}
}

// Payload is a unit of data exchanged between endpoints.
type Payload struct {
	ID   string
	Kind PayloadKind
	// Name is the file name, relative to the transfer root for directories.
	Name string
	Size int64
	// Bytes holds the content of a PayloadBytes payload.
	Bytes []byte
	// Body streams the content of file and stream payloads. The receiver of a
	// callback must consume it before returning.
	Body io.Reader
	// Checksum is the hex sha256 of the content, when the sender knows it.
	Checksum string
}

// NewBytesPayload wraps b.
func NewBytesPayload(b []byte) Payload {
	return Payload{ID: uuid.NewString(), Kind: PayloadBytes, Size: int64(len(b)), Bytes: b}
}

// NewFilePayload describes a file whose content is read from body.
func NewFilePayload(name string, size int64, body io.Reader) Payload {
	return Payload{ID: uuid.NewString(), Kind: PayloadFile, Name: name, Size: size, Body: body}
}

// TransferStatus is the state carried by a transfer update.
type TransferStatus int

const (
	TransferInProgress TransferStatus = iota
	TransferSuccess
	TransferFailure
	TransferCanceled
)

func (s TransferStatus) String() string {
	switch s {
	case TransferInProgress:
		return "in_progress"
	case TransferSuccess:
		return "success"
	case TransferFailure:
		return "failure"
	case TransferCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// TransferUpdate reports byte progress for one payload.
type TransferUpdate struct {
	PayloadID        string
	Status           TransferStatus
	BytesTransferred int64
	TotalBytes       int64
	// Outgoing is true for payloads sent by the local endpoint.
	Outgoing bool
}

// AuthenticationDigits derives the 4-digit token both sides of a connection
// display. It depends only on the pair of endpoint ids, not their order.
func AuthenticationDigits(a, b string) string {
	if a > b {
		a, b = b, a
	}
	sum := sha256.Sum256([]byte(a + "|" + b))
	return fmt.Sprintf("%04d", binary.BigEndian.Uint32(sum[:4])%10000)
}
