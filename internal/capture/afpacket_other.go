//go:build !linux

package capture

import (
	"fmt"
	"runtime"

	"github.com/nickproject/sniwatch/internal/packet"
)

type afpacketSource struct{}

func openAFPacket(cfg Config) (*afpacketSource, error) {
	return nil, fmt.Errorf("%w: %s 仅支持 Linux (%s)", ErrUnsupportedBackend, BackendAFPacket, runtime.GOOS)
}

func (s *afpacketSource) LinkType() packet.LinkType { return packet.LinkTypeEthernet }

func (s *afpacketSource) ReadFrame() ([]byte, error) { return nil, ErrUnsupportedBackend }

func (s *afpacketSource) Close() error { return nil }
