package parser

import (
	"unicode/utf8"

	"golang.org/x/crypto/cryptobyte"
)

const (
	tlsHandshake    = 0x16
	tlsClientHello  = 0x01
	extensionSNI    = 0x0000
	sniHostNameType = 0x00
)

// ExtractSNI 从 TCP payload 开头的 TLS ClientHello 中提取 SNI 主机名。
// 只解析第一个 TLS 记录中的第一条握手消息；任何一步失败都返回 false，
// 调用方无法区分格式错误与不带 SNI 的 ClientHello。
func ExtractSNI(payload []byte) (string, bool) {
	hello, ok := readHandshakeRecord(cryptobyte.String(payload))
	if !ok {
		return "", false
	}
	exts, ok := readExtensions(hello)
	if !ok {
		return "", false
	}
	return findServerName(exts)
}

// readHandshakeRecord 读取记录头与握手头，返回 ClientHello 消息体
func readHandshakeRecord(s cryptobyte.String) (cryptobyte.String, bool) {
	var (
		contentType uint8
		version     uint16
		record      cryptobyte.String
	)
	if !s.ReadUint8(&contentType) || contentType != tlsHandshake ||
		!s.ReadUint16(&version) || !s.ReadUint16LengthPrefixed(&record) {
		return nil, false
	}

	var (
		msgType uint8
		body    cryptobyte.String
	)
	if !record.ReadUint8(&msgType) || msgType != tlsClientHello ||
		!record.ReadUint24LengthPrefixed(&body) {
		return nil, false
	}
	return body, true
}

// readExtensions 跳过 ClientHello 固定字段，返回扩展块
func readExtensions(hello cryptobyte.String) (cryptobyte.String, bool) {
	var sessionID, cipherSuites, compression, exts cryptobyte.String
	// legacy_version(2) + random(32)
	if !hello.Skip(2+32) ||
		!hello.ReadUint8LengthPrefixed(&sessionID) ||
		!hello.ReadUint16LengthPrefixed(&cipherSuites) ||
		!hello.ReadUint8LengthPrefixed(&compression) {
		return nil, false
	}
	if hello.Empty() {
		// 没有扩展块
		return nil, false
	}
	if !hello.ReadUint16LengthPrefixed(&exts) {
		return nil, false
	}
	return exts, true
}

func findServerName(exts cryptobyte.String) (string, bool) {
	for !exts.Empty() {
		var (
			extType uint16
			data    cryptobyte.String
		)
		if !exts.ReadUint16(&extType) || !exts.ReadUint16LengthPrefixed(&data) {
			return "", false
		}
		if extType != extensionSNI {
			continue
		}

		var names cryptobyte.String
		if !data.ReadUint16LengthPrefixed(&names) {
			return "", false
		}
		for !names.Empty() {
			var (
				nameType uint8
				name     cryptobyte.String
			)
			if !names.ReadUint8(&nameType) || !names.ReadUint16LengthPrefixed(&name) {
				return "", false
			}
			if nameType != sniHostNameType {
				continue
			}
			if len(name) == 0 || !utf8.Valid(name) {
				return "", false
			}
			return string(name), true
		}
	}
	return "", false
}
