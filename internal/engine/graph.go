// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"maps"
	"slices"

	"github.com/ik5/rtproc/client"
)

// graph is an immutable snapshot of ports and connections. Setup calls build
// a new one and swap it in; the cycle loads it once per block.
type graph struct {
	ports  map[client.PortID]*port
	byName map[string]*port
	// feeds maps a sink to the sources connected to it, in connection order.
	feeds map[client.PortID][]*port

	clientSinks   []*port
	clientSources []*port
	systemSinks   []*port
	systemSources []*port
}

func emptyGraph() *graph {
	return &graph{
		ports:  make(map[client.PortID]*port),
		byName: make(map[string]*port),
		feeds:  make(map[client.PortID][]*port),
	}
}

func (g *graph) clone() *graph {
	n := &graph{
		ports:  maps.Clone(g.ports),
		byName: maps.Clone(g.byName),
		feeds:  make(map[client.PortID][]*port, len(g.feeds)),
	}
	for k, v := range g.feeds {
		n.feeds[k] = slices.Clone(v)
	}
	return n
}

// index rebuilds the per-role port lists, ordered by id.
func (g *graph) index() *graph {
	g.clientSinks, g.clientSources = nil, nil
	g.systemSinks, g.systemSources = nil, nil

	ids := slices.Sorted(maps.Keys(g.ports))
	for _, id := range ids {
		p := g.ports[id]
		switch {
		case p.system && p.isSource():
			g.systemSources = append(g.systemSources, p)
		case p.system:
			g.systemSinks = append(g.systemSinks, p)
		case p.isSource():
			g.clientSources = append(g.clientSources, p)
		default:
			g.clientSinks = append(g.clientSinks, p)
		}
	}
	return g
}

func (g *graph) add(p *port) *graph {
	n := g.clone()
	n.ports[p.id] = p
	n.byName[p.name] = p
	return n.index()
}

func (g *graph) remove(p *port) *graph {
	n := g.clone()
	delete(n.ports, p.id)
	delete(n.byName, p.name)
	delete(n.feeds, p.id)
	for dst, srcs := range n.feeds {
		n.feeds[dst] = slices.DeleteFunc(srcs, func(s *port) bool { return s == p })
		if len(n.feeds[dst]) == 0 {
			delete(n.feeds, dst)
		}
	}
	return n.index()
}

func (g *graph) connected(src, dst *port) bool {
	return slices.Contains(g.feeds[dst.id], src)
}

func (g *graph) connect(src, dst *port) *graph {
	n := g.clone()
	n.feeds[dst.id] = append(n.feeds[dst.id], src)
	return n.index()
}

func (g *graph) disconnect(src, dst *port) *graph {
	n := g.clone()
	n.feeds[dst.id] = slices.DeleteFunc(n.feeds[dst.id], func(s *port) bool { return s == src })
	if len(n.feeds[dst.id]) == 0 {
		delete(n.feeds, dst.id)
	}
	return n.index()
}

// connections lists the names of the ports connected to p.
func (g *graph) connections(p *port) []string {
	var out []string
	if !p.isSource() {
		for _, s := range g.feeds[p.id] {
			out = append(out, s.name)
		}
		return out
	}
	for dst, srcs := range g.feeds {
		if slices.Contains(srcs, p) {
			out = append(out, g.ports[dst].name)
		}
	}
	slices.Sort(out)
	return out
}
