package neat

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/baldhumanity/walkneat/neat/nn"
)

// ErrCorruptGenomeFile is wrapped by every decoding failure of the genome file format.
var ErrCorruptGenomeFile = errors.New("corrupt genome file")

// --- Genome file format ---
//
// All values use the byte order of the machine that wrote the file, so files
// are not portable across architectures.
//
//	inputs u32, outputs u32, hidden u32
//	(outputs + hidden) x { bias f32, id u32 }   non-input nodes, creation order
//	connectionCount u64
//	connectionCount x { from u32, to u32, weight f32, innovation u32 }
//
// Input nodes are not stored: they have ids 0..inputs-1 and no bias. Hidden
// nodes are loaded as ReLU and outputs use DefaultOutputActivation.

const (
	headerSize     = 3 * 4
	nodeRecordSize = 4 + 4
	connRecordSize = 4 + 4 + 4 + 4

	maxFileNodes = 1 << 24
)

// DefaultOutputActivation is the output activation of decoded genomes.
const DefaultOutputActivation = nn.Sigmoid

// MarshalBinary encodes the genome in the genome file format.
func (g *Genome) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, headerSize+(g.Info.Outputs+g.Info.Hidden)*nodeRecordSize+8+len(g.Connections)*connRecordSize)
	order := binary.NativeEndian

	buf = order.AppendUint32(buf, uint32(g.Info.Inputs))
	buf = order.AppendUint32(buf, uint32(g.Info.Outputs))
	buf = order.AppendUint32(buf, uint32(g.Info.Hidden))

	for i := g.Info.Inputs; i < len(g.Nodes); i++ {
		buf = order.AppendUint32(buf, math.Float32bits(g.Nodes[i].Bias))
		buf = order.AppendUint32(buf, g.ids[i].Uint32())
	}

	buf = order.AppendUint64(buf, uint64(g.ConnectionCount()))
	for _, c := range g.Connections {
		if !c.Active {
			continue
		}
		buf = order.AppendUint32(buf, g.ids[c.From].Uint32())
		buf = order.AppendUint32(buf, g.ids[c.To].Uint32())
		buf = order.AppendUint32(buf, math.Float32bits(c.Weight))
		buf = order.AppendUint32(buf, c.InnovationID)
	}
	return buf, nil
}

// UnmarshalBinary replaces g with the genome decoded from data.
func (g *Genome) UnmarshalBinary(data []byte) error {
	decoded, err := decodeGenome(data)
	if err != nil {
		return err
	}
	*g = *decoded
	return nil
}

// WriteTo writes the genome in the genome file format. It implements io.WriterTo.
func (g *Genome) WriteTo(w io.Writer) (int64, error) {
	data, err := g.MarshalBinary()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// WriteToFile saves the genome to filePath, replacing any existing file.
func (g *Genome) WriteToFile(filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create genome file '%s': %w", filePath, err)
	}
	if _, err := g.WriteTo(file); err != nil {
		file.Close()
		return fmt.Errorf("failed to write genome file '%s': %w", filePath, err)
	}
	return file.Close()
}

// ReadGenome decodes a genome from r, reading until EOF.
func ReadGenome(r io.Reader) (*Genome, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read genome: %w", err)
	}
	return decodeGenome(data)
}

// LoadFromFile decodes the genome stored at filePath.
func LoadFromFile(filePath string) (*Genome, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open genome file '%s': %w", filePath, err)
	}
	g, err := decodeGenome(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load genome file '%s': %w", filePath, err)
	}
	return g, nil
}

// fileReader walks a byte slice. Callers check remaining() before reading.
type fileReader struct {
	data []byte
	off  int
}

func (r *fileReader) remaining() int {
	return len(r.data) - r.off
}

func (r *fileReader) u32() uint32 {
	v := binary.NativeEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

func (r *fileReader) u64() uint64 {
	v := binary.NativeEndian.Uint64(r.data[r.off:])
	r.off += 8
	return v
}

func (r *fileReader) f32() float32 {
	return math.Float32frombits(r.u32())
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorruptGenomeFile, fmt.Sprintf(format, args...))
}

func decodeGenome(data []byte) (*Genome, error) {
	r := &fileReader{data: data}
	if r.remaining() < headerSize {
		return nil, corrupt("truncated header: %d bytes", len(data))
	}
	inputs, outputs, hidden := uint64(r.u32()), uint64(r.u32()), uint64(r.u32())

	// Every node record and the connection count must fit in what is left.
	nodeRecords := outputs + hidden
	if nodeRecords > uint64(r.remaining()/nodeRecordSize) ||
		uint64(r.remaining())-nodeRecords*nodeRecordSize < 8 {
		return nil, corrupt("%d node records do not fit in %d bytes", nodeRecords, r.remaining())
	}
	// Inputs own no bytes, so they need an explicit bound.
	if inputs+nodeRecords > maxFileNodes {
		return nil, corrupt("node count %d exceeds %d", inputs+nodeRecords, maxFileNodes)
	}

	g := NewGenome(int(inputs), int(outputs), DefaultOutputActivation)
	index := make(map[uint32]int, inputs+nodeRecords)
	for i := 0; i < int(inputs); i++ {
		index[uint32(i)] = i
	}
	for k := uint64(0); k < nodeRecords; k++ {
		i := int(inputs + k)
		if k >= outputs {
			g.CreateNode(nn.ReLU, true)
		}
		bias, id := r.f32(), r.u32()
		if _, dup := index[id]; dup {
			return nil, corrupt("duplicate node id %d", id)
		}
		index[id] = i
		g.SetBias(i, bias)
	}

	count := r.u64()
	if count > uint64(r.remaining()/connRecordSize) {
		return nil, corrupt("%d connection records do not fit in %d bytes", count, r.remaining())
	}
	if uint64(r.remaining()) != count*connRecordSize {
		return nil, corrupt("%d trailing bytes", uint64(r.remaining())-count*connRecordSize)
	}
	for k := uint64(0); k < count; k++ {
		fromID, toID := r.u32(), r.u32()
		weight, innovation := r.f32(), r.u32()
		from, ok := index[fromID]
		if !ok {
			return nil, corrupt("connection %d: unknown node id %d", k, fromID)
		}
		to, ok := index[toID]
		if !ok {
			return nil, corrupt("connection %d: unknown node id %d", k, toID)
		}
		if !g.tryCreateGene(ConnectionGene{From: from, To: to, Weight: weight, InnovationID: innovation}) {
			return nil, corrupt("connection %d: %d -> %d is a duplicate or closes a cycle", k, fromID, toID)
		}
	}
	return g, nil
}
