package screenshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"efiboot/src/uefi"
	"efiboot/src/uefi/uefitest"
)

const image = uefi.Handle(9)

// withPorts installs a log port and a test port, in that order.
func withPorts(t *testing.T) (*uefitest.Boot, *uefitest.Serial, *uefitest.Serial) {
	t.Helper()
	bs := uefitest.NewBoot()
	log, test := &uefitest.Serial{}, &uefitest.Serial{}
	bs.Install(uefi.SerialIOGUID, log)
	bs.Install(uefi.SerialIOGUID, test)
	return bs, log, test
}

func TestRequest(t *testing.T) {
	bs, log, test := withPorts(t)
	test.Reply = []byte("OK\n")

	require.NoError(t, Request(image, bs, "gop_test"))
	assert.Equal(t, "SCREENSHOT: gop_test\n", string(test.Sent))
	assert.Empty(t, log.Sent)
	assert.Equal(t, uint32(10000000), test.Timeout)

	handles, _ := bs.LocateHandleBuffer(uefi.SerialIOGUID)
	_, open := bs.OpenedBy(handles[1], uefi.SerialIOGUID)
	assert.False(t, open, "test port left open")
}

func TestRequestBadReply(t *testing.T) {
	for _, reply := range []string{"", "NO\n", "OK"} {
		bs, _, test := withPorts(t)
		test.Reply = []byte(reply)
		assert.ErrorIs(t, Request(image, bs, "text"), ErrReply, "reply %q", reply)
	}
}

func TestRequestNeedsSecondPort(t *testing.T) {
	bs := uefitest.NewBoot()
	assert.ErrorIs(t, Request(image, bs, "text"), ErrNoSerial)

	bs.Install(uefi.SerialIOGUID, &uefitest.Serial{Reply: []byte("OK\n")})
	assert.ErrorIs(t, Request(image, bs, "text"), ErrNoSerial)
}

func TestRequestPortBusy(t *testing.T) {
	bs, _, _ := withPorts(t)
	handles, _ := bs.LocateHandleBuffer(uefi.SerialIOGUID)
	_, st := bs.OpenProtocol(handles[1], uefi.SerialIOGUID, 1, uefi.OpenExclusive)
	require.False(t, st.IsError())

	assert.ErrorIs(t, Request(image, bs, "text"), uefi.AccessDenied.Err())
}

func TestRequestWriteFails(t *testing.T) {
	bs, _, test := withPorts(t)
	test.WriteStatus = uefi.DeviceError
	assert.ErrorIs(t, Request(image, bs, "text"), uefi.DeviceError.Err())
}

func TestRequestRejectsName(t *testing.T) {
	bs, _, test := withPorts(t)
	for _, name := range []string{"", "two\nlines", "cr\r"} {
		assert.ErrorIs(t, Request(image, bs, name), ErrName)
	}
	assert.Empty(t, test.Sent)
}
