package batch

import "fmt"

// DefaultCeiling is the request size ceiling of the remote SQL interface.
const DefaultCeiling = 50 << 20 // 50 MiB

// Batch is an ordered run of commands sent as one request.
type Batch struct {
	Commands []Command
}

// Statement returns the single command sent for the batch: the schema
// command itself, or the merged multi-row insert.
func (b Batch) Statement() Command {
	c, err := Combine(b.Commands...)
	if err != nil {
		// Assemble only groups compatible commands.
		panic(err)
	}
	return c
}

// Size is the byte size of Statement().
func (b Batch) Size() int { return b.Statement().Size() }

// Rows counts the tuples carried by the batch.
func (b Batch) Rows() int {
	n := 0
	for _, c := range b.Commands {
		n += c.Rows()
	}
	return n
}

// Assembler packs commands into batches no larger than Ceiling.
//
// Commands accumulate while the merged statement stays within the ceiling;
// the command that would overflow starts the next batch. Schema commands
// are always a batch of their own, flushed before anything that follows
// them. A change of table or column list also flushes. A multi-row insert
// larger than the ceiling is decomposed at row boundaries first; a single
// row larger than the ceiling is emitted alone and never dropped.
type Assembler struct {
	Ceiling int
}

// Assemble is pure: the same input always yields the same batches.
func (a Assembler) Assemble(cmds []Command) ([]Batch, error) {
	ceiling := a.Ceiling
	if ceiling <= 0 {
		return nil, fmt.Errorf("batch: ceiling must be > 0, got %d", ceiling)
	}

	var (
		out     []Batch
		cur     []Command
		curSize int
	)
	flush := func() {
		if len(cur) == 0 {
			return
		}
		out = append(out, Batch{Commands: cur})
		cur = nil
		curSize = 0
	}

	for _, c := range cmds {
		if c.Kind == KindSchema {
			flush()
			out = append(out, Batch{Commands: []Command{c}})
			continue
		}
		if c.Rows() == 0 {
			continue
		}
		pieces := []Command{c}
		if c.Size() > ceiling && c.Rows() > 1 {
			pieces = c.Split()
		}
		for _, p := range pieces {
			if len(cur) > 0 && !cur[0].compatible(p) {
				flush()
			}
			if len(cur) == 0 {
				cur = append(cur, p)
				curSize = p.Size()
				continue
			}
			grown := curSize + len(tupleSep) + p.Size() - p.prefixLen()
			if grown > ceiling {
				flush()
				cur = append(cur, p)
				curSize = p.Size()
				continue
			}
			cur = append(cur, p)
			curSize = grown
		}
	}
	flush()
	return out, nil
}
