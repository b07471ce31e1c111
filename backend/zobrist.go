package main

import "sync"

type ZobristTable struct {
	size  int
	cells []uint64
	side  uint64
}

type zobristStore struct {
	mu     sync.Mutex
	tables map[int]*ZobristTable
}

var zobristTables = &zobristStore{tables: make(map[int]*ZobristTable)}

// GetZobrist returns the shared key table for a board size. Keys are
// derived from a fixed seed, so hashes are stable across processes.
func GetZobrist(size int) *ZobristTable {
	zobristTables.mu.Lock()
	defer zobristTables.mu.Unlock()
	if table, ok := zobristTables.tables[size]; ok {
		return table
	}
	rng := splitmix64{state: uint64(0x9e3779b97f4a7c15) ^ uint64(size)}
	table := &ZobristTable{size: size, cells: make([]uint64, size*size*2)}
	for i := range table.cells {
		table.cells[i] = rng.next()
	}
	table.side = rng.next()
	zobristTables.tables[size] = table
	return table
}

func (z *ZobristTable) cellKey(index int, cell Cell) uint64 {
	idx := index * 2
	if cell == CellWhite {
		idx++
	}
	return z.cells[idx]
}

func (z *ZobristTable) stone(x, y int, player PlayerColor) uint64 {
	return z.cellKey(y*z.size+x, CellFromPlayer(player))
}

// positionKey mixes the side to move into a board hash. Ko comparison uses
// the bare board hash; the transposition table uses this key.
func positionKey(boardHash uint64, toMove PlayerColor, size int) uint64 {
	if toMove == PlayerWhite {
		return boardHash ^ GetZobrist(size).side
	}
	return boardHash
}

type splitmix64 struct {
	state uint64
}

func (s *splitmix64) next() uint64 {
	s.state += 0x9e3779b97f4a7c15
	z := s.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
