package checkpoint

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/siamics/siamics/internal/tensor"
)

const (
	dtypeF64       = "F64"
	metadataKey    = "__metadata__"
	checksumKey    = "sha256"
	bytesPerScalar = 8
)

// tensorHeader represents a tensor in the SafeTensors header.
type tensorHeader struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// File is the decoded content of a SafeTensors file.
type File struct {
	Tensors  map[string]*tensor.Tensor
	Metadata map[string]string
}

// Names returns the tensor names in alphabetical order.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Tensors))
	for name := range f.Tensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WriteFile writes tensors to a SafeTensors file at path.
func WriteFile(path string, tensors map[string]*tensor.Tensor, metadata map[string]string) error {
	//nolint:gosec // G304: checkpoint paths come from the caller
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := Write(file, tensors, metadata); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// Write encodes tensors in SafeTensors format.
//
// Tensors are written in alphabetical order by name. The SHA-256 of the data
// section is added to the metadata under "sha256".
func Write(w io.Writer, tensors map[string]*tensor.Tensor, metadata map[string]string) error {
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		if err := validateTensorName(name); err != nil {
			return err
		}
		names = append(names, name)
	}
	sort.Strings(names)

	header := make(map[string]any, len(names)+1)
	var data bytes.Buffer
	var offset int64
	buf := make([]byte, bytesPerScalar)
	for _, name := range names {
		t := tensors[name]
		shape := make([]int64, len(t.Shape()))
		for i, dim := range t.Shape() {
			shape[i] = int64(dim)
		}
		size := int64(t.NumElements() * bytesPerScalar)
		header[name] = tensorHeader{
			DType:       dtypeF64,
			Shape:       shape,
			DataOffsets: [2]int64{offset, offset + size},
		}
		offset += size

		for _, v := range t.Data() {
			binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
			data.Write(buf)
		}
	}

	meta := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		meta[k] = v
	}
	sum := sha256.Sum256(data.Bytes())
	meta[checksumKey] = hex.EncodeToString(sum[:])
	header[metadataKey] = meta

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := w.Write(data.Bytes()); err != nil {
		return fmt.Errorf("failed to write tensor data: %w", err)
	}
	return nil
}

// ReadFile decodes the SafeTensors file at path.
func ReadFile(path string) (*File, error) {
	//nolint:gosec // G304: checkpoint paths come from the caller
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()
	return Read(file)
}

// Read decodes a SafeTensors stream containing F64 tensors.
//
// When the metadata carries a "sha256" entry the data section is verified
// against it.
func Read(r io.Reader) (*File, error) {
	var headerSize uint64
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize == 0 || headerSize > MaxHeaderSize {
		return nil, &ValidationError{
			Type:    "header_too_large",
			Details: fmt.Sprintf("header size %d outside (0, %d]", headerSize, MaxHeaderSize),
		}
	}

	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(headerJSON, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read tensor data: %w", err)
	}

	f := &File{
		Tensors:  make(map[string]*tensor.Tensor, len(raw)),
		Metadata: map[string]string{},
	}
	if m, ok := raw[metadataKey]; ok {
		if err := json.Unmarshal(m, &f.Metadata); err != nil {
			return nil, fmt.Errorf("%w: metadata: %w", ErrInvalidHeader, err)
		}
		delete(raw, metadataKey)
	}
	if want, ok := f.Metadata[checksumKey]; ok {
		sum := sha256.Sum256(data)
		if hex.EncodeToString(sum[:]) != want {
			return nil, ErrChecksumMismatch
		}
	}

	headers := make(map[string]tensorHeader, len(raw))
	spans := make([]tensorSpan, 0, len(raw))
	for name, msg := range raw {
		if err := validateTensorName(name); err != nil {
			return nil, err
		}
		var th tensorHeader
		if err := json.Unmarshal(msg, &th); err != nil {
			return nil, fmt.Errorf("%w: tensor %q: %w", ErrInvalidHeader, name, err)
		}
		if th.DType != dtypeF64 {
			return nil, fmt.Errorf("%w: tensor %q has dtype %s", ErrUnsupportedDType, name, th.DType)
		}
		headers[name] = th
		spans = append(spans, tensorSpan{
			Name:   name,
			Offset: th.DataOffsets[0],
			Size:   th.DataOffsets[1] - th.DataOffsets[0],
		})
	}
	if err := checkDataLayout(spans, int64(len(data))); err != nil {
		return nil, err
	}

	for name, th := range headers {
		t, err := decodeTensor(name, th, data)
		if err != nil {
			return nil, err
		}
		f.Tensors[name] = t
	}
	return f, nil
}

func decodeTensor(name string, th tensorHeader, data []byte) (*tensor.Tensor, error) {
	shape := make(tensor.Shape, len(th.Shape))
	for i, dim := range th.Shape {
		shape[i] = int(dim)
	}
	if err := shape.Validate(); err != nil {
		return nil, &ValidationError{Type: "invalid_shape", Tensor: name, Details: err.Error()}
	}

	size := th.DataOffsets[1] - th.DataOffsets[0]
	count, ok := shape.CountUpTo(len(data) / bytesPerScalar)
	if !ok {
		return nil, &ValidationError{
			Type:    "size_mismatch",
			Tensor:  name,
			Details: fmt.Sprintf("shape %v needs more than the %d bytes of tensor data", shape, len(data)),
		}
	}
	if want := int64(count) * bytesPerScalar; size != want {
		return nil, &ValidationError{
			Type:    "size_mismatch",
			Tensor:  name,
			Details: fmt.Sprintf("shape %v needs %d bytes, header says %d", shape, want, size),
		}
	}

	values := make([]float64, count)
	raw := data[th.DataOffsets[0]:th.DataOffsets[1]]
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*bytesPerScalar:]))
	}
	return tensor.FromSlice(values, shape)
}
