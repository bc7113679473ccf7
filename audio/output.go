package audio

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"
	"go.uber.org/zap"
)

const demandPoll = 10 * time.Microsecond

// Output owns the portaudio stream. Each callback clears both rings,
// publishes how many frames it needs, then spins until the renderer has
// pushed them. A late renderer stalls the callback rather than erroring;
// stalls are counted so the caller can report them.
type Output struct {
	stream     *portaudio.Stream
	left       *Ring
	right      *Ring
	demand     atomic.Int64
	stalls     atomic.Int64
	closing    atomic.Bool
	sampleRate int
	bufferSize int
	log        *zap.Logger
}

// Connect initializes portaudio and starts a stereo stream on the
// default output device.
func Connect(sampleRate, bufferSize int, log *zap.Logger) (*Output, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	o := &Output{
		left:       NewRing(2 * bufferSize),
		right:      NewRing(2 * bufferSize),
		sampleRate: sampleRate,
		bufferSize: bufferSize,
		log:        log,
	}
	stream, err := portaudio.OpenDefaultStream(0, 2, float64(sampleRate), bufferSize, o.callback)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, err
	}
	o.stream = stream
	log.Info("audio output connected",
		zap.Int("sampleRate", sampleRate),
		zap.Int("bufferSize", bufferSize))
	return o, nil
}

func (o *Output) SampleRate() int {
	return o.sampleRate
}

// Demand exposes the frame-count handshake for the render loop.
func (o *Output) Demand() *atomic.Int64 {
	return &o.demand
}

// Rings returns the left and right sample queues.
func (o *Output) Rings() (*Ring, *Ring) {
	return o.left, o.right
}

// Stalls reports how many callbacks had to wait on the renderer.
func (o *Output) Stalls() int64 {
	return o.stalls.Load()
}

func (o *Output) callback(out [][]float32) {
	frames := len(out[0])
	if o.closing.Load() {
		silence(out)
		return
	}
	o.left.Clear()
	o.right.Clear()
	o.demand.Store(int64(frames))
	waited := false
	for o.left.Len() < frames || o.right.Len() < frames {
		// Once teardown begins nothing will fill the rings again, so
		// emit silence instead of waiting for stream.Stop to block on us.
		if o.closing.Load() {
			silence(out)
			return
		}
		waited = true
		time.Sleep(demandPoll)
	}
	if waited {
		o.stalls.Add(1)
	}
	for i := 0; i < frames; i++ {
		out[0][i], _ = o.left.Pop()
		out[1][i], _ = o.right.Pop()
	}
}

func silence(out [][]float32) {
	for _, channel := range out {
		for i := range channel {
			channel[i] = 0
		}
	}
}

// Close stops the stream and tears portaudio down. The closing flag is
// raised first so a callback stuck waiting on the renderer lets go.
func (o *Output) Close() error {
	o.closing.Store(true)
	if o.stream == nil {
		return portaudio.Terminate()
	}
	if err := o.stream.Stop(); err != nil {
		o.log.Warn("audio stream stop failed", zap.Error(err))
	}
	err := o.stream.Close()
	o.stream = nil
	if terr := portaudio.Terminate(); err == nil {
		err = terr
	}
	return err
}

// RenderFunc fills one stereo block.
type RenderFunc func(left, right []float32)

// RunRenderer services the callback's demand: it waits for a nonzero
// frame count, renders exactly one block, and pushes it into the rings.
// The buffers grow to the largest block seen and are reused after that.
func RunRenderer(ctx context.Context, output *Output, render RenderFunc) {
	demand := output.Demand()
	left, right := output.Rings()
	var lbuf, rbuf []float32
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		frames := int(demand.Swap(0))
		if frames == 0 {
			time.Sleep(demandPoll)
			continue
		}
		if len(lbuf) < frames {
			lbuf = append(lbuf, make([]float32, frames-len(lbuf))...)
			rbuf = append(rbuf, make([]float32, frames-len(rbuf))...)
		}
		render(lbuf[:frames], rbuf[:frames])
		left.Push(lbuf[:frames])
		right.Push(rbuf[:frames])
	}
}
