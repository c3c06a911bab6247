package comm

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/contrastive/mat32"
)

// Group is an in-process worker group for exercising loss engines under
// world sizes greater than one. Each rank runs on its own goroutine and
// rendezvouses with the others at every AllGather, mirroring the lock-step
// call discipline of a real training group.
type Group struct {
	world int

	mu    sync.Mutex
	round *round
}

// round is one collective rendezvous. The last rank to arrive assembles
// the result, publishes it, and wakes the waiters.
type round struct {
	contribs [][]*mat32.Matrix
	arrived  int
	results  []*mat32.Matrix
	err      error
	done     chan struct{}
}

// NewGroup creates a group of world cooperating ranks.
func NewGroup(world int) *Group {
	if world <= 0 {
		world = 1
	}

	return &Group{world: world}
}

// WorldSize returns the number of ranks in the group.
func (g *Group) WorldSize() int { return g.world }

// Peer returns the Communicator for the given rank.
func (g *Group) Peer(rank int) Communicator {
	return &peer{group: g, rank: rank}
}

// Run executes fn once per rank, each on its own goroutine, and waits for
// all of them. The first error cancels the derived context, which unblocks
// ranks parked inside a collective.
func (g *Group) Run(ctx context.Context, fn func(ctx context.Context, c Communicator) error) error {
	eg, ctx := errgroup.WithContext(ctx)
	for rank := 0; rank < g.world; rank++ {
		c := g.Peer(rank)
		eg.Go(func() error {
			return fn(ctx, c)
		})
	}

	return eg.Wait()
}

type peer struct {
	group *Group
	rank  int
}

func (p *peer) Rank() int { return p.rank }

func (p *peer) WorldSize() int { return p.group.world }

func (p *peer) AllGather(ctx context.Context, mats ...*mat32.Matrix) ([]*mat32.Matrix, error) {
	return p.group.allGather(ctx, p.rank, mats)
}

func (g *Group) allGather(ctx context.Context, rank int, mats []*mat32.Matrix) ([]*mat32.Matrix, error) {
	if rank < 0 || rank >= g.world {
		return nil, fmt.Errorf("comm: rank %d out of range for world size %d", rank, g.world)
	}

	g.mu.Lock()
	if g.round == nil {
		g.round = &round{
			contribs: make([][]*mat32.Matrix, g.world),
			done:     make(chan struct{}),
		}
	}
	r := g.round

	if r.contribs[rank] != nil {
		g.mu.Unlock()
		return nil, &ErrRaggedGather{Rank: rank, Detail: "rank joined the same collective twice"}
	}
	r.contribs[rank] = mats
	r.arrived++

	last := r.arrived == g.world
	if last {
		r.results, r.err = assemble(r.contribs)
		g.round = nil // next collective opens a fresh round
		close(r.done)
	}
	g.mu.Unlock()

	if !last {
		select {
		case <-r.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return r.results, r.err
}

// assemble concatenates the per-rank contributions in rank order,
// rejecting mismatched call structure or ragged shapes.
func assemble(contribs [][]*mat32.Matrix) ([]*mat32.Matrix, error) {
	count := len(contribs[0])
	for rank, c := range contribs {
		if len(c) != count {
			return nil, &ErrRaggedGather{
				Rank:   rank,
				Detail: fmt.Sprintf("contributed %d matrices, rank 0 contributed %d", len(c), count),
			}
		}
	}

	out := make([]*mat32.Matrix, count)
	for i := 0; i < count; i++ {
		rows := contribs[0][i].Rows()
		cols := contribs[0][i].Cols()
		for rank := 1; rank < len(contribs); rank++ {
			m := contribs[rank][i]
			if m.Rows() != rows || m.Cols() != cols {
				return nil, &ErrRaggedGather{
					Rank: rank,
					Detail: fmt.Sprintf("matrix %d is %dx%d, rank 0 contributed %dx%d",
						i, m.Rows(), m.Cols(), rows, cols),
				}
			}
		}

		global := mat32.New(rows*len(contribs), cols)
		for rank, c := range contribs {
			copy(global.Data()[rank*rows*cols:], c[i].Data())
		}
		out[i] = global
	}

	return out, nil
}
