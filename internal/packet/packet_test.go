package packet

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickproject/sniwatch/internal/testutil"
)

func TestNewDemuxerRejectsUnknownLinkType(t *testing.T) {
	_, err := NewDemuxer(LinkType(113))
	require.ErrorIs(t, err, ErrUnsupportedLinkType)

	for _, lt := range []LinkType{LinkTypeEthernet, LinkTypeLinuxSLL2} {
		d, err := NewDemuxer(lt)
		require.NoError(t, err)
		assert.Equal(t, lt, d.LinkType())
	}
}

func TestDecodeClassifiesDirection(t *testing.T) {
	request := testutil.Segment{
		SrcIP: "192.168.1.10", DstIP: "151.101.1.1",
		SrcPort: 51234, DstPort: 443,
		Payload: []byte("hello"),
	}
	response := request.Reverse()
	response.Payload = []byte("world!")

	d, err := NewDemuxer(LinkTypeEthernet)
	require.NoError(t, err)

	key, dir, seg, err := d.Decode(testutil.EthernetFrame(request))
	require.NoError(t, err)
	assert.Equal(t, ToServer, dir)
	assert.Equal(t, netip.MustParseAddrPort("192.168.1.10:51234"), key.Client)
	assert.Equal(t, netip.MustParseAddrPort("151.101.1.1:443"), key.Server)
	assert.Equal(t, []byte("hello"), seg.Payload)
	assert.Equal(t, uint16(443), seg.DstPort)

	key2, dir2, seg2, err := d.Decode(testutil.EthernetFrame(response))
	require.NoError(t, err)
	assert.Equal(t, ToClient, dir2)
	assert.Equal(t, key, key2, "both directions must map to the same key")
	assert.Equal(t, []byte("world!"), seg2.Payload)
}

func TestDecodeIPv6OverSLL2(t *testing.T) {
	request := testutil.Segment{
		SrcIP: "2001:db8::10", DstIP: "2001:db8::443",
		SrcPort: 40000, DstPort: 443,
		SYN: true,
	}
	d, err := NewDemuxer(LinkTypeLinuxSLL2)
	require.NoError(t, err)

	key, dir, seg, err := d.Decode(testutil.SLL2Frame(request))
	require.NoError(t, err)
	assert.Equal(t, ToServer, dir)
	assert.True(t, seg.SYN)
	assert.Empty(t, seg.Payload)
	assert.Equal(t, netip.MustParseAddrPort("[2001:db8::10]:40000"), key.Client)

	reply := request.Reverse()
	reply.RST = true
	key2, dir2, seg2, err := d.Decode(testutil.SLL2Frame(reply))
	require.NoError(t, err)
	assert.Equal(t, ToClient, dir2)
	assert.Equal(t, key, key2)
	assert.True(t, seg2.Closing())
}

func TestDecodeFailures(t *testing.T) {
	eth, err := NewDemuxer(LinkTypeEthernet)
	require.NoError(t, err)
	sll, err := NewDemuxer(LinkTypeLinuxSLL2)
	require.NoError(t, err)

	frame := testutil.EthernetFrame(testutil.Segment{
		SrcIP: "10.0.0.1", DstIP: "10.0.0.2", SrcPort: 1, DstPort: 443,
	})

	t.Run("short ethernet", func(t *testing.T) {
		_, _, _, err := eth.Decode(frame[:10])
		assert.ErrorIs(t, err, ErrTruncated)
	})
	t.Run("short sll2", func(t *testing.T) {
		_, _, _, err := sll.Decode(make([]byte, 12))
		assert.ErrorIs(t, err, ErrTruncated)
	})
	t.Run("arp", func(t *testing.T) {
		arp := append([]byte(nil), frame...)
		arp[12], arp[13] = 0x08, 0x06
		_, _, _, err := eth.Decode(arp)
		assert.ErrorIs(t, err, ErrNotIP)
	})
	t.Run("udp", func(t *testing.T) {
		udp := append([]byte(nil), frame...)
		udp[14+9] = 17
		_, _, _, err := eth.Decode(udp)
		assert.ErrorIs(t, err, ErrNotTCP)
	})
	t.Run("truncated tcp header", func(t *testing.T) {
		_, _, _, err := eth.Decode(frame[:14+20+8])
		assert.Error(t, err)
	})
}

func TestDirectionString(t *testing.T) {
	assert.Equal(t, "sent", ToServer.String())
	assert.Equal(t, "received", ToClient.String())
	assert.Equal(t, "LINUX_SLL2", LinkTypeLinuxSLL2.String())
}
