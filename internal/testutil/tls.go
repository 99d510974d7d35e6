package testutil

import (
	"golang.org/x/crypto/cryptobyte"
)

// HelloOptions ClientHello 构造参数
type HelloOptions struct {
	ServerName string
	// NameType 默认 0 (host_name)
	NameType uint8
	// NoExtensions 不写扩展块
	NoExtensions bool
	// ExtraExtensions 在 SNI 之前插入的其它扩展类型
	ExtraExtensions []uint16
	// PadTo 用 padding 扩展把记录补到指定总长度
	PadTo int
}

// MakeClientHello 构造一个单记录 TLS ClientHello
func MakeClientHello(opts HelloOptions) []byte {
	hello := buildHello(opts, -1)
	// padding 扩展头部 4 字节，其余为扩展内容
	if !opts.NoExtensions && opts.PadTo >= len(hello)+4 {
		hello = buildHello(opts, opts.PadTo-len(hello)-4)
	}
	return hello
}

func buildHello(opts HelloOptions, padding int) []byte {
	var b cryptobyte.Builder
	b.AddUint8(0x16)
	b.AddUint16(0x0301)
	b.AddUint16LengthPrefixed(func(rec *cryptobyte.Builder) {
		rec.AddUint8(0x01)
		rec.AddUint24LengthPrefixed(func(h *cryptobyte.Builder) {
			h.AddUint16(0x0303)
			h.AddBytes(make([]byte, 32))
			h.AddUint8LengthPrefixed(func(sid *cryptobyte.Builder) {
				sid.AddBytes(make([]byte, 32))
			})
			h.AddUint16LengthPrefixed(func(cs *cryptobyte.Builder) {
				cs.AddUint16(0x1301)
				cs.AddUint16(0x1302)
				cs.AddUint16(0xc02f)
			})
			h.AddUint8LengthPrefixed(func(cm *cryptobyte.Builder) {
				cm.AddUint8(0)
			})
			if opts.NoExtensions {
				return
			}
			h.AddUint16LengthPrefixed(func(exts *cryptobyte.Builder) {
				for _, t := range opts.ExtraExtensions {
					exts.AddUint16(t)
					exts.AddUint16LengthPrefixed(func(e *cryptobyte.Builder) {
						e.AddBytes([]byte{0x00, 0x02, 0x01, 0x00})
					})
				}
				if opts.ServerName != "" {
					exts.AddUint16(0x0000)
					exts.AddUint16LengthPrefixed(func(e *cryptobyte.Builder) {
						e.AddUint16LengthPrefixed(func(list *cryptobyte.Builder) {
							list.AddUint8(opts.NameType)
							list.AddUint16LengthPrefixed(func(name *cryptobyte.Builder) {
								name.AddBytes([]byte(opts.ServerName))
							})
						})
					})
				}
				if padding >= 0 {
					exts.AddUint16(0x0015)
					exts.AddUint16LengthPrefixed(func(e *cryptobyte.Builder) {
						e.AddBytes(make([]byte, padding))
					})
				}
			})
		})
	})
	return b.BytesOrPanic()
}
