// Package gridio persists grids in a safetensors container and imports
// grids from CSV tables.
package gridio

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/x448/float16"
)

// Supported payload dtypes. Grids are written as F64; the narrower types are
// accepted on read and offered for compact data payloads.
const (
	DTypeF64  = "F64"
	DTypeF32  = "F32"
	DTypeF16  = "F16"
	DTypeBF16 = "BF16"
)

const metadataKey = "__metadata__"

// ErrFormat is returned for malformed or unsupported container contents.
var ErrFormat = errors.New("gridio: invalid container")

// Tensor is one named array in a container. Data is always float64 in
// memory, whatever the stored dtype.
type Tensor struct {
	Name  string
	DType string
	Shape []int64
	Data  []float64
}

type headerEntry struct {
	DType   string  `json:"dtype"`
	Shape   []int64 `json:"shape"`
	Offsets [2]int  `json:"data_offsets"`
}

// Container is a decoded safetensors payload.
type Container struct {
	Metadata map[string]string
	tensors  map[string]Tensor
	names    []string
}

// Names returns the tensor names in sorted order.
func (c *Container) Names() []string { return append([]string(nil), c.names...) }

// Tensor returns the named tensor.
func (c *Container) Tensor(name string) (Tensor, error) {
	t, ok := c.tensors[name]
	if !ok {
		return Tensor{}, fmt.Errorf("%w: tensor %q not found (available: %s)", ErrFormat, name, summarizeNames(c.names))
	}

	return t, nil
}

// Decode parses a safetensors payload: an 8-byte little-endian header
// length, a JSON header, then the raw little-endian tensor data.
func Decode(data []byte) (*Container, error) {
	headerEnd, header, err := decodeHeader(data)
	if err != nil {
		return nil, err
	}

	c := &Container{
		Metadata: map[string]string{},
		tensors:  make(map[string]Tensor, len(header)),
	}

	if raw, ok := header[metadataKey]; ok {
		if err := json.Unmarshal(raw, &c.Metadata); err != nil {
			return nil, fmt.Errorf("%w: metadata: %w", ErrFormat, err)
		}
	}

	for name, raw := range header {
		if name == metadataKey {
			continue
		}

		var entry headerEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("%w: header entry %q: %w", ErrFormat, name, err)
		}

		t, err := decodeEntry(name, entry, data, headerEnd)
		if err != nil {
			return nil, err
		}

		c.tensors[name] = t
		c.names = append(c.names, name)
	}

	if len(c.names) == 0 {
		return nil, fmt.Errorf("%w: no tensors found", ErrFormat)
	}

	sort.Strings(c.names)

	return c, nil
}

func decodeHeader(data []byte) (int, map[string]json.RawMessage, error) {
	if len(data) < 8 {
		return 0, nil, fmt.Errorf("%w: file too short (%d bytes)", ErrFormat, len(data))
	}

	headerLen := binary.LittleEndian.Uint64(data[:8])
	if headerLen > uint64(len(data)-8) {
		return 0, nil, fmt.Errorf("%w: header length %d exceeds file size %d", ErrFormat, headerLen, len(data))
	}

	headerEnd := 8 + int(headerLen)

	var header map[string]json.RawMessage
	if err := json.Unmarshal(data[8:headerEnd], &header); err != nil {
		return 0, nil, fmt.Errorf("%w: parse header: %w", ErrFormat, err)
	}

	return headerEnd, header, nil
}

func decodeEntry(name string, entry headerEntry, data []byte, headerEnd int) (Tensor, error) {
	dtype := strings.ToUpper(entry.DType)

	size, err := dtypeBytes(dtype)
	if err != nil {
		return Tensor{}, fmt.Errorf("%w: tensor %q: %w", ErrFormat, name, err)
	}

	if entry.Offsets[0] < 0 || entry.Offsets[1] < entry.Offsets[0] {
		return Tensor{}, fmt.Errorf("%w: tensor %q has invalid data offsets %v", ErrFormat, name, entry.Offsets)
	}

	// Compare against the payload length before adding headerEnd so huge
	// offsets cannot wrap around.
	if entry.Offsets[1] > len(data)-headerEnd {
		return Tensor{}, fmt.Errorf("%w: tensor %q data offsets %v exceed payload size %d",
			ErrFormat, name, entry.Offsets, len(data)-headerEnd)
	}

	start := headerEnd + entry.Offsets[0]
	end := headerEnd + entry.Offsets[1]

	count, err := shapeElementCount(entry.Shape)
	if err != nil {
		return Tensor{}, fmt.Errorf("%w: tensor %q: %w", ErrFormat, name, err)
	}

	if want := int(count) * size; end-start != want {
		return Tensor{}, fmt.Errorf("%w: tensor %q needs %d bytes but data has %d", ErrFormat, name, want, end-start)
	}

	return Tensor{
		Name:  name,
		DType: dtype,
		Shape: append([]int64(nil), entry.Shape...),
		Data:  decodeValues(data[start:end], dtype, int(count)),
	}, nil
}

func shapeElementCount(shape []int64) (int64, error) {
	total := int64(1)

	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("negative dimension %d", d)
		}

		if d == 0 {
			return 0, nil
		}

		if total > math.MaxInt32/d {
			return 0, fmt.Errorf("shape %v overflows element count", shape)
		}

		total *= d
	}

	return total, nil
}

func dtypeBytes(dtype string) (int, error) {
	switch dtype {
	case DTypeF64:
		return 8, nil
	case DTypeF32:
		return 4, nil
	case DTypeF16, DTypeBF16:
		return 2, nil
	default:
		return 0, fmt.Errorf("unsupported dtype %q", dtype)
	}
}

func decodeValues(raw []byte, dtype string, n int) []float64 {
	out := make([]float64, n)

	switch dtype {
	case DTypeF64:
		for i := range out {
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
		}
	case DTypeF32:
		for i := range out {
			out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:])))
		}
	case DTypeF16:
		for i := range out {
			out[i] = float64(float16.Frombits(binary.LittleEndian.Uint16(raw[i*2:])).Float32())
		}
	case DTypeBF16:
		for i := range out {
			bits := binary.LittleEndian.Uint16(raw[i*2:])
			out[i] = float64(math.Float32frombits(uint32(bits) << 16))
		}
	}

	return out
}

func encodeValues(dst []byte, data []float64, dtype string) []byte {
	switch dtype {
	case DTypeF32:
		for _, v := range data {
			dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(float32(v)))
		}
	case DTypeF16:
		for _, v := range data {
			dst = binary.LittleEndian.AppendUint16(dst, float16.Fromfloat32(float32(v)).Bits())
		}
	case DTypeBF16:
		for _, v := range data {
			dst = binary.LittleEndian.AppendUint16(dst, uint16(math.Float32bits(float32(v))>>16))
		}
	default:
		for _, v := range data {
			dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(v))
		}
	}

	return dst
}

// Encode serializes tensors into a safetensors payload. A tensor with an
// empty DType is written as F64.
func Encode(tensors []Tensor, metadata map[string]string) ([]byte, error) {
	if len(tensors) == 0 {
		return nil, fmt.Errorf("%w: no tensors to encode", ErrFormat)
	}

	sorted := make([]Tensor, len(tensors))
	copy(sorted, tensors)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	header := make(map[string]any, len(sorted)+1)
	if len(metadata) > 0 {
		header[metadataKey] = metadata
	}

	var raw []byte

	for _, t := range sorted {
		name := strings.TrimSpace(t.Name)
		if name == "" || name == metadataKey {
			return nil, fmt.Errorf("%w: invalid tensor name %q", ErrFormat, t.Name)
		}

		if _, exists := header[name]; exists {
			return nil, fmt.Errorf("%w: duplicate tensor name %q", ErrFormat, name)
		}

		dtype := strings.ToUpper(t.DType)
		if dtype == "" {
			dtype = DTypeF64
		}

		if _, err := dtypeBytes(dtype); err != nil {
			return nil, fmt.Errorf("%w: tensor %q: %w", ErrFormat, name, err)
		}

		count, err := shapeElementCount(t.Shape)
		if err != nil {
			return nil, fmt.Errorf("%w: tensor %q: %w", ErrFormat, name, err)
		}

		if int64(len(t.Data)) != count {
			return nil, fmt.Errorf("%w: tensor %q shape %v expects %d elements, got %d", ErrFormat, name, t.Shape, count, len(t.Data))
		}

		start := len(raw)
		raw = encodeValues(raw, t.Data, dtype)

		header[name] = headerEntry{
			DType:   dtype,
			Shape:   append([]int64(nil), t.Shape...),
			Offsets: [2]int{start, len(raw)},
		}
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("gridio: encode header: %w", err)
	}

	out := make([]byte, 0, 8+len(headerJSON)+len(raw))
	out = binary.LittleEndian.AppendUint64(out, uint64(len(headerJSON)))
	out = append(out, headerJSON...)
	out = append(out, raw...)

	return out, nil
}

func summarizeNames(names []string) string {
	if len(names) == 0 {
		return "none"
	}

	const maxNames = 8
	if len(names) <= maxNames {
		return strings.Join(names, ", ")
	}

	return strings.Join(names[:maxNames], ", ") + ", ..."
}
