package handlers

import (
	"sync"

	"github.com/PRASANNAPATIL12/weddingcard/internal/generator"
)

// generatorPool holds one generator per wedding key, created on first use.
type generatorPool struct {
	mu     sync.RWMutex
	gens   map[string]*generator.Generator
	newGen func() *generator.Generator
}

func newGeneratorPool(newGen func() *generator.Generator) *generatorPool {
	return &generatorPool{
		gens:   make(map[string]*generator.Generator),
		newGen: newGen,
	}
}

// get returns the generator for key, creating it if needed.
func (p *generatorPool) get(key string) *generator.Generator {
	p.mu.RLock()
	g, ok := p.gens[key]
	p.mu.RUnlock()
	if ok {
		return g
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	// Double-check after acquiring write lock
	if g, ok := p.gens[key]; ok {
		return g
	}
	g = p.newGen()
	p.gens[key] = g
	return g
}

// peek returns the generator for key without creating one.
func (p *generatorPool) peek(key string) (*generator.Generator, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	g, ok := p.gens[key]
	return g, ok
}

func (p *generatorPool) len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.gens)
}

func (p *generatorPool) closeAll() {
	p.mu.Lock()
	gens := p.gens
	p.gens = make(map[string]*generator.Generator)
	p.mu.Unlock()
	for _, g := range gens {
		g.Close()
	}
}
