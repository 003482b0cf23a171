package uefi

// SerialIOGUID identifies the serial I/O protocol.
var SerialIOGUID = NewGUID(0xbb25cf6f, 0xf1d4, 0x11d2, 0x9a0c, 0x0090273fc1fd)

// SerialIO is the serial I/O protocol.  Read returns what arrived before
// the timeout; a short read comes back with Timeout.
type SerialIO interface {
	Write(p []byte) (int, Status)
	Read(p []byte) (int, Status)
	// SetTimeout sets the per-character receive timeout.
	SetTimeout(microseconds uint32) Status
}

// OpenAttribute is the attribute mask of OpenProtocol.
type OpenAttribute uint32

const (
	OpenByHandleProtocol  OpenAttribute = 0x01
	OpenGetProtocol       OpenAttribute = 0x02
	OpenTestProtocol      OpenAttribute = 0x04
	OpenByChildController OpenAttribute = 0x08
	OpenByDriver          OpenAttribute = 0x10
	OpenExclusive         OpenAttribute = 0x20
)
