package camera

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"sync"
	"time"

	"github.com/andresmejia3/faceguard/internal/utils"
	"github.com/rs/zerolog"
)

// maxFrameSize bounds a single MJPEG frame in the pipe
const maxFrameSize = 8 * 1024 * 1024

// DefaultMaxFrameAge is how old the latest frame may be before ReadFrame treats the producer as stalled
const DefaultMaxFrameAge = 2 * time.Second

// Stream keeps the latest JPEG frame read from an MJPEG byte stream.
// A pump goroutine overwrites the frame as fast as the producer writes, so
// ReadFrame always sees the current picture rather than a backlog.
type Stream struct {
	cmd *utils.SafeCommand
	src io.Closer

	mutex    sync.RWMutex
	latest   []byte
	latestAt time.Time
	maxAge   time.Duration
	now      func() time.Time

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
	err       error

	log zerolog.Logger
}

// OpenFFmpeg starts ffmpeg on input (a device like /dev/video0 or a stream URL) and pumps its frames.
func OpenFFmpeg(input string, inputArgs []string, log zerolog.Logger) (*Stream, error) {
	cmd := utils.NewFFmpegCmd(input, inputArgs...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	s := newStream(stdout, log)
	s.cmd = cmd
	return s, nil
}

// NewStream pumps frames from an already-open MJPEG reader
func NewStream(r io.ReadCloser, log zerolog.Logger) *Stream {
	s := newStream(r, log)
	s.src = r
	return s
}

func newStream(r io.Reader, log zerolog.Logger) *Stream {
	s := &Stream{
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
		maxAge: DefaultMaxFrameAge,
		now:    time.Now,
		log:    log,
	}
	go s.pump(r)
	return s
}

func (s *Stream) pump(r io.Reader) {
	defer close(s.done)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), maxFrameSize)
	scanner.Split(utils.SplitJpeg)

	for scanner.Scan() {
		frame := bytes.Clone(scanner.Bytes())

		s.mutex.Lock()
		s.latest = frame
		s.latestAt = s.now()
		s.mutex.Unlock()

		s.readyOnce.Do(func() { close(s.ready) })
	}
	s.err = scanner.Err()
	if s.err != nil {
		s.log.Error().Err(s.err).Msg("frame pump stopped")
	}
}

// WaitReady blocks until the first frame arrives, the stream ends, or ctx is done
func (s *Stream) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-s.done:
		select {
		case <-s.ready:
			return nil
		default:
		}
		if s.err != nil {
			return fmt.Errorf("stream ended before first frame: %w", s.err)
		}
		return errors.New("stream ended before first frame")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetMaxAge changes how stale the latest frame may be; zero disables the check
func (s *Stream) SetMaxAge(d time.Duration) {
	s.mutex.Lock()
	s.maxAge = d
	s.mutex.Unlock()
}

// ReadFrame decodes the most recent frame.
// A stream whose producer has exited, or whose latest frame is older than the
// max age, reports a failed read instead of replaying a frozen picture.
func (s *Stream) ReadFrame() (image.Image, bool) {
	select {
	case <-s.done:
		return nil, false
	default:
	}

	s.mutex.RLock()
	frame, at, maxAge := s.latest, s.latestAt, s.maxAge
	s.mutex.RUnlock()

	if frame == nil {
		return nil, false
	}
	if age := s.now().Sub(at); maxAge > 0 && age > maxAge {
		s.log.Warn().Dur("age", age).Msg("stale frame, producer stalled")
		return nil, false
	}
	img, err := jpeg.Decode(bytes.NewReader(frame))
	if err != nil {
		s.log.Warn().Err(err).Int("bytes", len(frame)).Msg("corrupt frame")
		return nil, false
	}
	return img, true
}

// Close stops the producer and waits for the pump to drain
func (s *Stream) Close() error {
	var err error
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
		<-s.done
		_ = s.cmd.Wait()
		if s.cmd.Stderr.Len() > 0 {
			s.log.Debug().Str("stderr", s.cmd.Stderr.String()).Msg("ffmpeg exited")
		}
		return nil
	}
	if s.src != nil {
		err = s.src.Close()
	}
	<-s.done
	return err
}
