package seeder

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/gisquick/tilecache/internal/grid"
)

// Coord is a metatile-aligned (x,y,z) coordinate the producer visits.
type Coord struct{ X, Y, Z int }

// Producer yields metatile coordinates to examine, one at a time, until
// Next returns ok=false.
type Producer interface {
	Next() (c Coord, ok bool)
}

// RetryLogProducer replays "x,y,z\n" lines from a failure log (spec §4.9.2
// "resume") instead of generating coordinates, per the retry-failed CLI flag.
type RetryLogProducer struct {
	scanner *bufio.Scanner
	file    *os.File
}

func OpenRetryLog(path string) (*RetryLogProducer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &RetryLogProducer{scanner: bufio.NewScanner(f), file: f}, nil
}

func (p *RetryLogProducer) Next() (Coord, bool) {
	if !p.scanner.Scan() {
		return Coord{}, false
	}
	var c Coord
	line := p.scanner.Text()
	if _, err := fmt.Sscanf(line, "%d,%d,%d", &c.X, &c.Y, &c.Z); err != nil {
		return Coord{}, false
	}
	return c, true
}

func (p *RetryLogProducer) Close() error {
	return p.file.Close()
}

// LevelByLevelProducer walks z from min to max, y and x over each level's
// limits, stepping by the metatile shape (spec §4.9.2 "level-by-level").
type LevelByLevelProducer struct {
	link            *grid.Link
	minZ, maxZ      int
	metaX, metaY    int
	z, x, y         int
	limits          grid.TileLimits
	started         bool
}

func NewLevelByLevel(link *grid.Link, minZ, maxZ, metaX, metaY int) *LevelByLevelProducer {
	return &LevelByLevelProducer{link: link, minZ: minZ, maxZ: maxZ, metaX: metaX, metaY: metaY, z: minZ}
}

func (p *LevelByLevelProducer) Next() (Coord, bool) {
	for {
		if p.z > p.maxZ {
			return Coord{}, false
		}
		if !p.started {
			p.limits = p.link.LimitsAt(p.z)
			p.x = (p.limits[0] / p.metaX) * p.metaX
			p.y = (p.limits[1] / p.metaY) * p.metaY
			p.started = true
		}
		if p.y >= p.limits[3] {
			p.z++
			p.started = false
			continue
		}
		if p.x >= p.limits[2] {
			p.x = (p.limits[0] / p.metaX) * p.metaX
			p.y += p.metaY
			continue
		}
		c := Coord{X: p.x, Y: p.y, Z: p.z}
		p.x += p.metaX
		return c, true
	}
}

// DrillDownExaminer is the callback a DrillDown recursion invokes at every
// node to decide whether to emit commands and/or recurse, per spec §4.9.2.
// It returns the commands yielded by examining (x,y,z); a result containing
// CmdStopRecursion halts descent into that node's children, any other result
// (an empty one included) descends.
type DrillDownExaminer func(x, y, z int) ([]Command, error)

// DrillDown recurses from (x0,y0,minZ) down to maxZ, descending into the 4
// child metatiles of z+1 whose extent intersects the current metatile
// (spec §4.9.2). emit receives every yielded command in visiting order.
func DrillDown(link *grid.Link, metaX, metaY, minZ, maxZ int, examine DrillDownExaminer, emit func(Command, int, int, int)) error {
	limits := link.LimitsAt(minZ)
	startX := (limits[0] / metaX) * metaX
	startY := (limits[1] / metaY) * metaY
	for y := startY; y < limits[3]; y += metaY {
		for x := startX; x < limits[2]; x += metaX {
			if err := drillRecurse(link, metaX, metaY, x, y, minZ, maxZ, examine, emit); err != nil {
				return err
			}
		}
	}
	return nil
}

func drillRecurse(link *grid.Link, metaX, metaY, x, y, z, maxZ int, examine DrillDownExaminer, emit func(Command, int, int, int)) error {
	cmds, err := examine(x, y, z)
	if err != nil {
		return err
	}
	for _, c := range cmds {
		if c != CmdStopRecursion {
			emit(c, x, y, z)
		}
	}
	for _, c := range cmds {
		if c == CmdStopRecursion {
			return nil
		}
	}
	if z >= maxZ {
		return nil
	}
	childZ := z + 1
	if childZ >= link.MaxZ {
		return nil
	}
	// Each parent metatile covers metaX*metaY tiles at z; at z+1 that same
	// area covers 2x the tiles per axis, i.e. 2x2 child metatiles
	// when the metatile shape stays fixed — spec constrains this path to
	// power-of-two metasize, so each axis exactly doubles per level.
	for dy := 0; dy < 2; dy++ {
		for dx := 0; dx < 2; dx++ {
			cx := (x*2 + dx*metaX)
			cy := (y*2 + dy*metaY)
			childLimits := link.LimitsAt(childZ)
			if cx >= childLimits[2] || cy >= childLimits[3] || cx+metaX <= childLimits[0] || cy+metaY <= childLimits[1] {
				continue
			}
			if err := drillRecurse(link, metaX, metaY, cx, cy, childZ, maxZ, examine, emit); err != nil {
				return err
			}
		}
	}
	return nil
}

// AppendFailedLog appends one "x,y,z\n" record to the failure log (spec §6.4).
func AppendFailedLog(w io.Writer, c Coord) error {
	_, err := fmt.Fprintf(w, "%d,%d,%d\n", c.X, c.Y, c.Z)
	return err
}
