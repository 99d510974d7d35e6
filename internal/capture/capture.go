package capture

import (
	"fmt"
	"runtime"
)

// New 按配置打开抓包来源
func New(cfg Config) (Source, error) {
	cfg = cfg.withDefaults()
	var (
		src Source
		err error
	)
	switch cfg.Backend {
	case BackendPcap:
		src, err = openPcap(cfg)
	case BackendAFPacket:
		src, err = openAFPacket(cfg)
	default:
		err = fmt.Errorf("%w: %q (%s)", ErrUnsupportedBackend, cfg.Backend, runtime.GOOS)
	}
	if err != nil {
		return nil, err
	}
	return src, nil
}
