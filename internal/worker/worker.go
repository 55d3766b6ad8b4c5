// Package worker runs a Keras model in an external Python process and exposes it as a classifier model.
package worker

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/andresmejia3/faceguard/internal/preprocess"
	"github.com/andresmejia3/faceguard/internal/utils" // Using the SafeCommand wrapper
)

// ErrWorker marks a failure reported by the Python side
var ErrWorker = errors.New("python worker error")

const (
	statusOK    = 0
	statusError = 1
)

// DefaultScript is the worker entry point shipped with the binary
const DefaultScript = "python/worker.py"

type PythonWorker struct {
	Cmd      *utils.SafeCommand
	Stdin    io.WriteCloser
	DataPipe io.ReadCloser

	shape preprocess.Shape
}

// NewPythonWorker starts the worker on modelPath and waits for it to announce the model input shape.
func NewPythonWorker(script, modelPath string) (*PythonWorker, error) {
	py := utils.NewSafeCommand("python3", "-u", script, modelPath)

	// Create a side-channel pipe (FD 3) for clean data transfer
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create pipe: %w", err)
	}
	// Pass the write-end to the child process. It will appear as FD 3.
	py.Cmd.ExtraFiles = []*os.File{w}

	stdin, err := py.StdinPipe()
	if err != nil {
		w.Close() // Prevent FD leak
		r.Close()
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	if err := py.Start(); err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("worker failed to start: %w", err)
	}

	// Close the write-end in the parent so only the child holds it
	w.Close()

	pw := &PythonWorker{Cmd: py, Stdin: stdin, DataPipe: r}
	if err := pw.handshake(); err != nil {
		pw.Close()
		return nil, err
	}
	return pw, nil
}

// handshake reads the first message the worker sends once the model is loaded:
// [Status] then [H][W][C] or [MsgLen][Msg]
func (w *PythonWorker) handshake() error {
	body, err := w.readFrame()
	if err != nil {
		return fmt.Errorf("worker did not come up: %w", err)
	}
	payload, err := checkStatus(body)
	if err != nil {
		return err
	}
	var dims [3]uint32
	if err := binary.Read(bytes.NewReader(payload), binary.BigEndian, &dims); err != nil {
		return fmt.Errorf("%w: malformed handshake: %v", ErrWorker, err)
	}
	w.shape = preprocess.Shape{Height: int(dims[0]), Width: int(dims[1]), Channels: int(dims[2])}
	return nil
}

func (w *PythonWorker) InputShape() preprocess.Shape { return w.shape }

// Forward sends one tensor and returns the raw scores.
// Request: [H][W][C][float32...]   Response: [Status] then [N][float32...] or [MsgLen][Msg]
func (w *PythonWorker) Forward(input preprocess.Tensor) ([]float32, error) {
	shape := input.Shape()
	req := new(bytes.Buffer)
	req.Grow(12 + 4*input.Len())
	binary.Write(req, binary.BigEndian, [3]uint32{uint32(shape.Height), uint32(shape.Width), uint32(shape.Channels)})
	binary.Write(req, binary.BigEndian, input.Values())

	if err := w.writeFrame(req.Bytes()); err != nil {
		return nil, err
	}

	body, err := w.readFrame()
	if err != nil {
		return nil, err // This is where we catch a worker that died mid-request
	}
	payload, err := checkStatus(body)
	if err != nil {
		return nil, err
	}

	r := bytes.NewReader(payload)
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrWorker, err)
	}
	if int(n)*4 != r.Len() {
		return nil, fmt.Errorf("%w: response claims %d scores but carries %d bytes", ErrWorker, n, r.Len())
	}
	scores := make([]float32, n)
	for i := range scores {
		var bits uint32
		binary.Read(r, binary.BigEndian, &bits)
		scores[i] = math.Float32frombits(bits)
	}
	return scores, nil
}

// Protocol: [Length][Data]
func (w *PythonWorker) writeFrame(data []byte) error {
	if err := binary.Write(w.Stdin, binary.BigEndian, uint32(len(data))); err != nil {
		return err
	}
	_, err := w.Stdin.Write(data)
	return err
}

func (w *PythonWorker) readFrame() ([]byte, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(w.DataPipe, header); err != nil {
		return nil, err
	}
	respLen := binary.BigEndian.Uint32(header)
	respBody := make([]byte, respLen)
	_, err := io.ReadFull(w.DataPipe, respBody)
	return respBody, err
}

func checkStatus(body []byte) ([]byte, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrWorker)
	}
	switch body[0] {
	case statusOK:
		return body[1:], nil
	case statusError:
		r := bytes.NewReader(body[1:])
		var msgLen uint32
		if err := binary.Read(r, binary.BigEndian, &msgLen); err != nil || int(msgLen) > r.Len() {
			return nil, fmt.Errorf("%w: malformed error response", ErrWorker)
		}
		msg := make([]byte, msgLen)
		r.Read(msg)
		return nil, fmt.Errorf("%w: %s", ErrWorker, msg)
	default:
		return nil, fmt.Errorf("%w: unknown status %d", ErrWorker, body[0])
	}
}

func (w *PythonWorker) Close() error {
	w.Stdin.Close()
	w.DataPipe.Close()
	if w.Cmd == nil {
		return nil
	}
	return w.Cmd.Wait()
}
