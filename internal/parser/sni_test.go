package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickproject/sniwatch/internal/testutil"
)

func TestExtractSNI(t *testing.T) {
	hello := testutil.MakeClientHello(testutil.HelloOptions{ServerName: "example.com"})
	host, ok := ExtractSNI(hello)
	require.True(t, ok)
	assert.Equal(t, "example.com", host)
}

func TestExtractSNISkipsOtherExtensions(t *testing.T) {
	hello := testutil.MakeClientHello(testutil.HelloOptions{
		ServerName:      "mirror.example.org",
		ExtraExtensions: []uint16{0x000a, 0x0010, 0x002b},
		PadTo:           512,
	})
	require.Len(t, hello, 512)

	host, ok := ExtractSNI(hello)
	require.True(t, ok)
	assert.Equal(t, "mirror.example.org", host)
}

func TestExtractSNIIgnoresTrailingData(t *testing.T) {
	hello := testutil.MakeClientHello(testutil.HelloOptions{ServerName: "example.com"})
	hello = append(hello, 0x17, 0x03, 0x03, 0x00, 0x01, 0xff)

	host, ok := ExtractSNI(hello)
	require.True(t, ok)
	assert.Equal(t, "example.com", host)
}

func TestExtractSNIMisses(t *testing.T) {
	valid := testutil.MakeClientHello(testutil.HelloOptions{ServerName: "example.com"})

	notHandshake := append([]byte(nil), valid...)
	notHandshake[0] = 0x17

	notClientHello := append([]byte(nil), valid...)
	notClientHello[5] = 0x02

	cases := map[string][]byte{
		"empty":            nil,
		"plain http":       []byte("GET / HTTP/1.1\r\nHost: example.com\r\n\r\n"),
		"not handshake":    notHandshake,
		"server hello":     notClientHello,
		"record truncated": valid[:len(valid)-1],
		"header only":      valid[:5],
		"no extensions":    testutil.MakeClientHello(testutil.HelloOptions{NoExtensions: true}),
		"no sni":           testutil.MakeClientHello(testutil.HelloOptions{ExtraExtensions: []uint16{0x000a}}),
		"not host_name":    testutil.MakeClientHello(testutil.HelloOptions{ServerName: "example.com", NameType: 1}),
		"invalid utf8":     testutil.MakeClientHello(testutil.HelloOptions{ServerName: "bad\xff\xfe.example"}),
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			host, ok := ExtractSNI(payload)
			assert.False(t, ok)
			assert.Empty(t, host)
		})
	}
}

func TestExtractSNIHandshakeLongerThanRecord(t *testing.T) {
	hello := testutil.MakeClientHello(testutil.HelloOptions{ServerName: "example.com"})
	// 握手消息声明的长度超出记录范围，模拟被拆分到多个记录的 ClientHello
	broken := append([]byte(nil), hello...)
	broken[7]++

	_, ok := ExtractSNI(broken)
	assert.False(t, ok)
}
