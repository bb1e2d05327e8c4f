package astisdt

import (
	"bytes"
	"context"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func demuxerStream() []byte {
	sdt := packetizeSections(PIDSDT, 0, sdtSectionBBC, actualSectionBytes(2, sdtBytes()))
	other := packetizeSections(0x100, 0, actualSectionBytes(3, sdtBytes()))
	return bytes.Join([][]byte{sdt[0], other[0], sdt[1], sdt[2], sdt[3], other[0], sdt[4]}, nil)
}

func TestDemuxerNextSection(t *testing.T) {
	dmx := NewDemuxer(context.Background(), bytes.NewReader(demuxerStream()))
	s, err := dmx.NextSection()
	require.NoError(t, err)
	assert.Equal(t, sdtSectionBBC, s)
	s, err = dmx.NextSection()
	require.NoError(t, err)
	assert.Equal(t, actualSectionBytes(2, sdtBytes()), s)
	_, err = dmx.NextSection()
	assert.ErrorIs(t, err, ErrNoMorePackets)

	// Rewind
	n, err := dmx.Rewind()
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	s, err = dmx.NextSection()
	require.NoError(t, err)
	assert.Equal(t, sdtSectionBBC, s)

	// Other PID
	dmx = NewDemuxer(context.Background(), bytes.NewReader(demuxerStream()), DemuxerOptPID(0x100))
	s, err = dmx.NextSection()
	require.NoError(t, err)
	assert.Equal(t, actualSectionBytes(3, sdtBytes()), s)
	_, err = dmx.NextSection()
	assert.ErrorIs(t, err, ErrNoMorePackets)
}

func TestDemuxerDiscontinuity(t *testing.T) {
	ps := packetizeSections(PIDSDT, 0, sdtSectionBBC)
	next := packetizeSections(PIDSDT, 0, actualSectionBytes(2, sdtBytes()))
	buf := &bytes.Buffer{}
	dmx := NewDemuxer(context.Background(), bytes.NewReader(bytes.Join([][]byte{ps[0], ps[1], ps[3], ps[4], next[0]}, nil)), DemuxerOptLogger(log.New(buf, "", 0)))
	s, err := dmx.NextSection()
	require.NoError(t, err)
	assert.Equal(t, actualSectionBytes(2, sdtBytes()), s)
	assert.Contains(t, buf.String(), "continuity counter discontinuity on pid 17")
}

func TestDemuxerPacketSize(t *testing.T) {
	ps := packetizeSections(PIDSDT, 0, actualSectionBytes(2, sdtBytes()))
	dmx := NewDemuxer(context.Background(), bytes.NewReader(append(make([]byte, 4), ps[0]...)), DemuxerOptPacketSize(192))
	_, err := dmx.NextSection()
	assert.ErrorIs(t, err, ErrPacketMustStartWithASyncByte)

	dmx = NewDemuxer(context.Background(), bytes.NewReader(ps[0]), DemuxerOptPacketSize(MpegTsPacketSize))
	s, err := dmx.NextSection()
	require.NoError(t, err)
	assert.Equal(t, actualSectionBytes(2, sdtBytes()), s)
}

func TestDemuxerContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dmx := NewDemuxer(ctx, bytes.NewReader(demuxerStream()))
	_, err := dmx.NextSection()
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDemuxerNextPacket(t *testing.T) {
	dmx := NewDemuxer(context.Background(), bytes.NewReader(demuxerStream()))
	var pids []uint16
	for {
		p, err := dmx.NextPacket()
		if err != nil {
			assert.ErrorIs(t, err, ErrNoMorePackets)
			break
		}
		pids = append(pids, p.Header.PID)
	}
	assert.Equal(t, []uint16{PIDSDT, 0x100, PIDSDT, PIDSDT, PIDSDT, 0x100, PIDSDT}, pids)
}
