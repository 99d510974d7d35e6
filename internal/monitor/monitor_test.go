package monitor

import (
	"context"
	"errors"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickproject/sniwatch/internal/aggregator"
	"github.com/nickproject/sniwatch/internal/capture"
	"github.com/nickproject/sniwatch/internal/filter"
	"github.com/nickproject/sniwatch/internal/packet"
	"github.com/nickproject/sniwatch/internal/testutil"
	"github.com/nickproject/sniwatch/internal/tui"
)

type fakeSink struct {
	mu     sync.Mutex
	cols   int
	busy   bool
	frames []tui.Frame
}

func (s *fakeSink) Columns() int { return s.cols }

func (s *fakeSink) Present(f tui.Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return false
	}
	s.frames = append(s.frames, f)
	return true
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

type fakeSource struct {
	lt     packet.LinkType
	frames [][]byte
	err    error
}

func (s *fakeSource) LinkType() packet.LinkType { return s.lt }

func (s *fakeSource) ReadFrame() ([]byte, error) {
	if len(s.frames) > 0 {
		f := s.frames[0]
		s.frames = s.frames[1:]
		return f, nil
	}
	if s.err != nil {
		return nil, s.err
	}
	time.Sleep(time.Millisecond)
	return nil, capture.ErrTimeout
}

func (s *fakeSource) Close() error { return nil }

var clientHello = testutil.Segment{
	SrcIP:   "192.168.1.10",
	DstIP:   "93.184.216.34",
	SrcPort: 50000,
	DstPort: 443,
	ACK:     true,
}

func helloSegment(name string, size int) testutil.Segment {
	seg := clientHello
	seg.Payload = testutil.MakeClientHello(testutil.HelloOptions{ServerName: name, PadTo: size})
	return seg
}

func TestEndToEndFlowLifecycle(t *testing.T) {
	table := aggregator.NewTable()
	proc, err := NewProcessor(packet.LinkTypeEthernet, table)
	require.NoError(t, err)

	hello := helloSegment("example.com", 200)
	require.Len(t, hello.Payload, 200)
	proc.Process(testutil.EthernetFrame(hello))

	key := packet.Key{
		Client: netip.MustParseAddrPort("192.168.1.10:50000"),
		Server: netip.MustParseAddrPort("93.184.216.34:443"),
	}
	st, ok := table.Get(key)
	require.True(t, ok)
	assert.Equal(t, "example.com", st.Hostname)
	assert.EqualValues(t, 200, st.Sent)

	resp := clientHello.Reverse()
	resp.Payload = make([]byte, 5000)
	proc.Process(testutil.EthernetFrame(resp))

	fin := clientHello
	fin.FIN = true
	proc.Process(testutil.EthernetFrame(fin))

	sink := &fakeSink{cols: 80}
	cons := NewConsumer(table, sink, ConsumerConfig{})
	frame := cons.Tick()

	require.Len(t, frame.Rows, 1)
	assert.Equal(t, aggregator.Group{
		Hostname:      "example.com",
		Conns:         1,
		Sent:          200,
		Received:      5000,
		TotalSent:     200,
		TotalReceived: 5000,
	}, frame.Rows[0].Group)
	assert.Contains(t, frame.Rows[0].Line, "    200 B/s↑")
	assert.Contains(t, frame.Rows[0].Line, "   4.9 KB/s↓")
	assert.Zero(t, frame.Flows, "closing flow evicted after its last epoch")
	assert.Zero(t, table.Len())
	assert.Equal(t, 1, sink.count())

	assert.Equal(t, ProcessorStats{Frames: 3, Hellos: 1}, proc.Stats())
}

func TestProcessIgnoresUnknownFlows(t *testing.T) {
	table := aggregator.NewTable()
	proc, err := NewProcessor(packet.LinkTypeLinuxSLL2, table)
	require.NoError(t, err)

	// 服务端先发的数据
	resp := clientHello.Reverse()
	resp.Payload = testutil.MakeClientHello(testutil.HelloOptions{ServerName: "server.example"})
	proc.Process(testutil.SLL2Frame(resp))

	// 握手阶段没有负载
	syn := clientHello
	syn.SYN = true
	proc.Process(testutil.SLL2Frame(syn))

	// 不是 ClientHello
	junk := clientHello
	junk.Payload = []byte("GET / HTTP/1.1\r\n\r\n")
	proc.Process(testutil.SLL2Frame(junk))

	// 损坏的帧
	proc.Process([]byte{0x00, 0x01})

	assert.Zero(t, table.Len())
	assert.Equal(t, ProcessorStats{Frames: 4, Malformed: 1, SNIMisses: 1}, proc.Stats())

	// 后续报文可以重试
	proc.Process(testutil.SLL2Frame(helloSegment("retry.example", 0)))
	assert.Equal(t, 1, table.Len())
}

func TestNewProcessorRejectsLinkType(t *testing.T) {
	_, err := NewProcessor(packet.LinkType(113), aggregator.NewTable())
	assert.ErrorIs(t, err, packet.ErrUnsupportedLinkType)

	_, err = NewProducer(&fakeSource{lt: 0}, aggregator.NewTable())
	assert.ErrorIs(t, err, packet.ErrUnsupportedLinkType)
}

func TestProducerRun(t *testing.T) {
	readErr := errors.New("device went away")
	src := &fakeSource{
		lt:     packet.LinkTypeEthernet,
		frames: [][]byte{testutil.EthernetFrame(helloSegment("a.example", 0))},
		err:    readErr,
	}
	table := aggregator.NewTable()
	prod, err := NewProducer(src, table)
	require.NoError(t, err)

	err = prod.Run(context.Background())
	require.ErrorIs(t, err, readErr)
	assert.Equal(t, 1, table.Len())
	assert.EqualValues(t, 1, prod.Stats().Hellos)
}

func TestProducerStopsOnCancel(t *testing.T) {
	prod, err := NewProducer(&fakeSource{lt: packet.LinkTypeEthernet}, aggregator.NewTable())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- prod.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("producer did not stop")
	}
}

func TestConsumerFilterAndDrop(t *testing.T) {
	table := aggregator.NewTable()
	proc, err := NewProcessor(packet.LinkTypeEthernet, table)
	require.NoError(t, err)

	a := helloSegment("video.example.com", 0)
	b := helloSegment("ads.tracker.io", 0)
	b.SrcPort = 50001
	proc.Process(testutil.EthernetFrame(a))
	proc.Process(testutil.EthernetFrame(b))

	sink := &fakeSink{cols: 100, busy: true}
	cons := NewConsumer(table, sink, ConsumerConfig{Filter: filter.New(nil, []string{"*.tracker.io"})})
	frame := cons.Tick()

	require.Len(t, frame.Rows, 1)
	assert.Equal(t, "video.example.com", frame.Rows[0].Group.Hostname)
	assert.Equal(t, 2, frame.Flows, "filtered flows stay in the table")
	assert.Equal(t, frame.Rows[0].Group, cons.LastGroups()[0])
	assert.EqualValues(t, 1, cons.Dropped())
	assert.Zero(t, sink.count())
}

func TestConsumerRunTicks(t *testing.T) {
	sink := &fakeSink{cols: 80}
	cons := NewConsumer(aggregator.NewTable(), sink, ConsumerConfig{Interval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cons.Run(ctx) }()

	require.Eventually(t, func() bool { return sink.count() >= 3 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}
